package buffers

import "testing"

func TestGetChunkSize(t *testing.T) {
	buf := GetChunk()
	defer PutChunk(buf)

	if len(*buf) != ChunkSize {
		t.Errorf("len = %d, want %d", len(*buf), ChunkSize)
	}
}

func TestPutChunkRejectsWrongSize(t *testing.T) {
	small := make([]byte, 16)
	PutChunk(&small) // must not panic or pool the buffer

	buf := GetChunk()
	defer PutChunk(buf)
	if len(*buf) != ChunkSize {
		t.Errorf("pool returned %d-byte buffer, want %d", len(*buf), ChunkSize)
	}
}

func TestPutChunkNil(t *testing.T) {
	PutChunk(nil)
}
