package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/mfat/mfatfm/internal/buffers"
)

// ChunkSize is the transfer copy block size. It doubles as the cancellation
// checkpoint granularity: the ProgressFunc runs once per chunk.
const ChunkSize = buffers.ChunkSize

// DefaultDialTimeout bounds the TCP connect during Dial.
const DefaultDialTimeout = 15 * time.Second

// Config holds the connection parameters for an SFTP session.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string // Optional; key and agent auth are tried first
	KeyFile  string // Optional path to a private key file
	Timeout  time.Duration
}

// Addr returns the host:port dial address.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", port))
}

// SFTPSession implements Session over an SSH connection using pkg/sftp.
// It is not safe for concurrent use; the transfer queue serializes calls.
type SFTPSession struct {
	conn   *ssh.Client
	client *sftp.Client
	user   string
	home   string // resolved lazily on first tilde expansion
}

// Dial opens an SSH connection and an SFTP subsystem channel on top of it.
// Authentication tries, in order: the configured key file, the local SSH
// agent, and the configured password.
func Dial(cfg Config) (*SFTPSession, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, &TransportError{Op: "auth", Err: err}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	conn, err := ssh.Dial("tcp", cfg.Addr(), sshCfg)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, &TransportError{Op: "session", Err: err}
	}

	return &SFTPSession{conn: conn, client: client, user: cfg.User}, nil
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, errors.New("no usable authentication method (key, agent, or password)")
	}
	return methods, nil
}

// HomeDir returns the remote home directory, resolving it once via the
// server. Falls back to /home/<user> when the server cannot answer.
func (s *SFTPSession) HomeDir() string {
	if s.home != "" {
		return s.home
	}
	if home, err := s.client.RealPath("."); err == nil && home != "" {
		s.home = home
	} else {
		s.home = "/home/" + s.user
	}
	return s.home
}

func (s *SFTPSession) expand(path string) string {
	if len(path) > 0 && path[0] == '~' {
		return expandTilde(path, s.HomeDir())
	}
	return path
}

// List returns the entries of a remote directory, including per-directory
// item counts where readable.
func (s *SFTPSession) List(path string) ([]Entry, error) {
	dir := s.expand(path)
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, &OpError{Op: "list", Path: dir, Err: err}
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entry := entryFromInfo(dir, info)
		if entry.IsDir {
			if sub, err := s.client.ReadDir(entry.Path); err == nil {
				entry.ItemCount = len(sub)
			}
		}
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

// sortEntries orders a listing directories first, then case-insensitively
// by name. This is the order both panes and the CLI present.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// Stat returns metadata for a single remote path.
func (s *SFTPSession) Stat(path string) (Entry, error) {
	p := s.expand(path)
	info, err := s.client.Stat(p)
	if err != nil {
		return Entry{}, &OpError{Op: "stat", Path: p, Err: err}
	}
	return entryFromInfo(ParentPath(p), info), nil
}

// Get copies a remote file to a local path. The ProgressFunc runs after each
// chunk; returning an error from it aborts the copy and leaves the partial
// local file in place.
func (s *SFTPSession) Get(remotePath, localPath string, onBytes ProgressFunc) error {
	src := s.expand(remotePath)

	rf, err := s.client.Open(src)
	if err != nil {
		return &OpError{Op: "get", Path: src, Err: err}
	}
	defer rf.Close()

	total := int64(-1)
	if info, err := rf.Stat(); err == nil {
		total = info.Size()
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local directory: %w", err)
	}
	lf, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}
	defer lf.Close()

	if err := copyChunks(lf, rf, total, onBytes); err != nil {
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return &OpError{Op: "get", Path: src, Err: err}
	}
	return nil
}

// Put copies a local file to a remote path.
func (s *SFTPSession) Put(localPath, remotePath string, onBytes ProgressFunc) error {
	dst := s.expand(remotePath)

	lf, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer lf.Close()

	total := int64(-1)
	if info, err := lf.Stat(); err == nil {
		total = info.Size()
	}

	rf, err := s.client.Create(dst)
	if err != nil {
		return &OpError{Op: "put", Path: dst, Err: err}
	}
	defer rf.Close()

	if err := copyChunks(rf, lf, total, onBytes); err != nil {
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return &OpError{Op: "put", Path: dst, Err: err}
	}
	return nil
}

// Remove deletes a remote file. When the path is a directory the contents
// are removed recursively, depth first.
func (s *SFTPSession) Remove(path string) error {
	p := s.expand(path)
	if err := s.client.Remove(p); err == nil {
		return nil
	}

	// Plain remove failed; treat as a directory and recurse.
	infos, err := s.client.ReadDir(p)
	if err != nil {
		return &OpError{Op: "remove", Path: p, Err: err}
	}
	for _, info := range infos {
		if err := s.Remove(JoinPath(p, info.Name())); err != nil {
			return err
		}
	}
	if err := s.client.RemoveDirectory(p); err != nil {
		return &OpError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

// Rename moves a remote file or directory.
func (s *SFTPSession) Rename(oldPath, newPath string) error {
	from, to := s.expand(oldPath), s.expand(newPath)
	if err := s.client.Rename(from, to); err != nil {
		return &OpError{Op: "rename", Path: from, Err: err}
	}
	return nil
}

// Mkdir creates a remote directory.
func (s *SFTPSession) Mkdir(path string) error {
	p := s.expand(path)
	if err := s.client.Mkdir(p); err != nil {
		return &OpError{Op: "mkdir", Path: p, Err: err}
	}
	return nil
}

// Close tears down the SFTP channel and the SSH connection.
func (s *SFTPSession) Close() error {
	var firstErr error
	if s.client != nil {
		firstErr = s.client.Close()
		s.client = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.conn = nil
	}
	return firstErr
}

// copyChunks copies src to dst in ChunkSize blocks, invoking onBytes after
// every written block with the running total.
func copyChunks(dst io.Writer, src io.Reader, total int64, onBytes ProgressFunc) error {
	bufp := buffers.GetChunk()
	defer buffers.PutChunk(bufp)
	buf := *bufp
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return err
			}
			written += int64(n)
			if onBytes != nil {
				if err := onBytes(written, total); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func entryFromInfo(dir string, info os.FileInfo) Entry {
	return Entry{
		Name:      info.Name(),
		Path:      JoinPath(dir, info.Name()),
		Size:      info.Size(),
		IsDir:     info.IsDir(),
		ModTime:   info.ModTime(),
		Mode:      info.Mode(),
		ItemCount: -1,
	}
}
