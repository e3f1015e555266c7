package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mfat/mfatfm/internal/localfs"
	"github.com/mfat/mfatfm/internal/remote"
	"github.com/mfat/mfatfm/internal/transfer"
)

// getTree downloads a remote directory recursively. Each file is one
// queue operation, so Ctrl+C stops at the current file's next
// checkpoint and everything already downloaded stays in place.
func getTree(a *cliApp, remoteRoot, localRoot string) error {
	state, res := a.run(transfer.Request{
		Kind:       transfer.OpList,
		RemotePath: remoteRoot,
	}, nil)
	if err := reportOutcome(state, res, remoteRoot); err != nil {
		return err
	}

	for _, e := range res.Entries {
		local := filepath.Join(localRoot, e.Name)
		if e.IsDir {
			if err := getTree(a, e.Path, local); err != nil {
				return err
			}
			continue
		}
		bar := newTransferBar(e.Size, "downloading "+e.Name)
		state, dres := a.run(transfer.Request{
			Kind:       transfer.OpDownload,
			RemotePath: e.Path,
			LocalPath:  local,
			SizeHint:   e.Size,
			Name:       e.Name,
		}, func(done, total int64) {
			bar.Set64(done)
		})
		finishBar(bar, state)
		if err := reportOutcome(state, dres, e.Name); err != nil {
			return err
		}
	}
	return nil
}

// putTree uploads a local directory recursively, creating remote
// directories as it descends. Hidden files are included; the walk
// mirrors the tree exactly.
func putTree(a *cliApp, localRoot, remoteRoot string) error {
	if err := ensureRemoteDir(a, remoteRoot); err != nil {
		return err
	}

	return localfs.Walk(localRoot, localfs.WalkOptions{IncludeHidden: true}, func(e localfs.FileEntry) error {
		rel, err := filepath.Rel(localRoot, e.Path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := remote.JoinPath(remoteRoot, filepath.ToSlash(rel))

		if e.IsDir {
			return ensureRemoteDir(a, target)
		}

		bar := newTransferBar(e.Size, "uploading "+e.Name)
		state, res := a.run(transfer.Request{
			Kind:       transfer.OpUpload,
			LocalPath:  e.Path,
			RemotePath: target,
			SizeHint:   e.Size,
			Name:       e.Name,
		}, func(done, total int64) {
			bar.Set64(done)
		})
		finishBar(bar, state)
		return reportOutcome(state, res, e.Name)
	})
}

// ensureRemoteDir creates a remote directory unless it already exists.
func ensureRemoteDir(a *cliApp, path string) error {
	state, res := a.run(transfer.Request{
		Kind:       transfer.OpStat,
		RemotePath: path,
	}, nil)
	if state == transfer.StateSucceeded {
		if res.Info.IsDir {
			return nil
		}
		return fmt.Errorf("%s exists and is not a directory", path)
	}

	state, res = a.run(transfer.Request{
		Kind:       transfer.OpMkdir,
		RemotePath: path,
	}, nil)
	return reportOutcome(state, res, path)
}
