package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mfat/mfatfm/internal/remote"
	"github.com/mfat/mfatfm/internal/transfer"
)

func newLsCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "~"
			if len(args) == 1 {
				path = args[0]
			}
			return withSession(func(a *cliApp) error {
				state, res := a.run(transfer.Request{
					Kind:       transfer.OpList,
					RemotePath: path,
				}, nil)
				if err := reportOutcome(state, res, "ls"); err != nil {
					return err
				}
				printListing(os.Stdout, res.Entries, long)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show size, permissions and modification time")
	return cmd
}

func printListing(out io.Writer, entries []remote.Entry, long bool) {
	if !long {
		for _, e := range entries {
			name := e.Name
			if e.IsDir {
				name += "/"
			}
			fmt.Fprintln(out, name)
		}
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		size := humanize.IBytes(uint64(e.Size))
		if e.IsDir {
			size = "-"
			if e.ItemCount >= 0 {
				size = fmt.Sprintf("%d items", e.ItemCount)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Mode.String(), size, e.ModTime.Format("2006-01-02 15:04"), e.Name)
	}
	w.Flush()
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a remote file or directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remotePath := args[0]
			localPath := remote.BaseName(remotePath)
			if len(args) == 2 {
				localPath = args[1]
			}
			return withSession(func(a *cliApp) error {
				state, res := a.run(transfer.Request{
					Kind:       transfer.OpStat,
					RemotePath: remotePath,
				}, nil)
				if err := reportOutcome(state, res, "stat"); err != nil {
					return err
				}
				if res.Info.IsDir {
					return getTree(a, res.Info.Path, localPath)
				}
				name := res.Info.Name

				bar := newTransferBar(res.Info.Size, "downloading "+name)
				state, res = a.run(transfer.Request{
					Kind:       transfer.OpDownload,
					RemotePath: remotePath,
					LocalPath:  localPath,
					SizeHint:   res.Info.Size,
					Name:       name,
				}, func(done, total int64) {
					bar.Set64(done)
				})
				finishBar(bar, state)
				return reportOutcome(state, res, name)
			})
		},
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> [remote-path]",
		Short: "Upload a local file or directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath := args[0]
			info, err := os.Stat(localPath)
			if err != nil {
				return err
			}
			name := filepath.Base(localPath)
			remotePath := name
			if len(args) == 2 {
				remotePath = args[1]
			}
			if info.IsDir() {
				return withSession(func(a *cliApp) error {
					return putTree(a, localPath, remotePath)
				})
			}
			return withSession(func(a *cliApp) error {
				bar := newTransferBar(info.Size(), "uploading "+name)
				state, res := a.run(transfer.Request{
					Kind:       transfer.OpUpload,
					LocalPath:  localPath,
					RemotePath: remotePath,
					SizeHint:   info.Size(),
					Name:       name,
				}, func(done, total int64) {
					bar.Set64(done)
				})
				finishBar(bar, state)
				return reportOutcome(state, res, name)
			})
		},
	}
}

func newRmCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rm <remote-path>",
		Short: "Remove a remote file or directory (recursively)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return withSession(func(a *cliApp) error {
				state, res := a.run(transfer.Request{
					Kind:       transfer.OpStat,
					RemotePath: path,
				}, nil)
				if err := reportOutcome(state, res, "stat"); err != nil {
					return err
				}
				if res.Info.IsDir && !force {
					if !promptYesNo(fmt.Sprintf("Remove directory %s and its contents?", path)) {
						return nil
					}
				}
				state, res = a.run(transfer.Request{
					Kind:       transfer.OpDelete,
					RemotePath: path,
					Name:       res.Info.Name,
				}, nil)
				return reportOutcome(state, res, path)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not prompt before removing directories")
	return cmd
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <remote-path>",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return withSession(func(a *cliApp) error {
				state, res := a.run(transfer.Request{
					Kind:       transfer.OpMkdir,
					RemotePath: path,
				}, nil)
				return reportOutcome(state, res, path)
			})
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <remote-path> <new-remote-path>",
		Short: "Rename or move a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(a *cliApp) error {
				state, res := a.run(transfer.Request{
					Kind:       transfer.OpRename,
					RemotePath: args[0],
					TargetPath: args[1],
				}, nil)
				return reportOutcome(state, res, args[0])
			})
		},
	}
}

// newTransferBar builds the stderr progress bar used by get and put.
func newTransferBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

func finishBar(bar *progressbar.ProgressBar, state transfer.State) {
	if state == transfer.StateSucceeded {
		bar.Finish()
	} else {
		bar.Exit()
		fmt.Fprintln(os.Stderr)
	}
}
