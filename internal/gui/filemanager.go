package gui

import (
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"github.com/mfat/mfatfm/internal/localfs"
	"github.com/mfat/mfatfm/internal/logging"
	"github.com/mfat/mfatfm/internal/notify"
	"github.com/mfat/mfatfm/internal/remote"
	"github.com/mfat/mfatfm/internal/transfer"
)

// FileManager assembles the two browser panes, the transfer buttons
// between them and the status bar. Every remote operation goes through
// the coordinator; completion callbacks land on the UI thread.
type FileManager struct {
	window   fyne.Window
	coord    *transfer.Coordinator
	notifier *notify.Notifier
	logger   *logging.Logger

	local  *LocalBrowser
	remote *RemoteBrowser
	status *StatusBar

	uploadBtn   *widget.Button
	downloadBtn *widget.Button

	localNewBtn    *widget.Button
	localRenameBtn *widget.Button
	localDeleteBtn *widget.Button

	remoteNewBtn    *widget.Button
	remoteRenameBtn *widget.Button
	remoteDeleteBtn *widget.Button
}

func NewFileManager(window fyne.Window, coord *transfer.Coordinator, localStart, remoteHome string, showHidden bool, notifier *notify.Notifier, logger *logging.Logger) *FileManager {
	m := &FileManager{
		window:   window,
		coord:    coord,
		notifier: notifier,
		logger:   logger,
		status:   NewStatusBar(),
	}

	m.local = NewLocalBrowser(localStart, showHidden, logger)
	m.remote = NewRemoteBrowser(coord, remoteHome, logger)

	m.uploadBtn = NewPrimaryButton("Upload", theme.MoveUpIcon(), m.onUpload)
	m.downloadBtn = NewPrimaryButton("Download", theme.MoveDownIcon(), m.onDownload)

	m.localNewBtn = widget.NewButtonWithIcon("New Folder", theme.FolderNewIcon(), m.onLocalMkdir)
	m.localRenameBtn = widget.NewButtonWithIcon("Rename", theme.DocumentCreateIcon(), m.onLocalRename)
	m.localDeleteBtn = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), m.onLocalDelete)

	m.remoteNewBtn = widget.NewButtonWithIcon("New Folder", theme.FolderNewIcon(), m.onRemoteMkdir)
	m.remoteRenameBtn = widget.NewButtonWithIcon("Rename", theme.DocumentCreateIcon(), m.onRemoteRename)
	m.remoteDeleteBtn = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), m.onRemoteDelete)

	m.local.OnSelectionChanged = func(e *localfs.FileEntry) { m.updateButtons() }
	m.remote.OnSelectionChanged = func(e *remote.Entry) { m.updateButtons() }
	m.local.OnError = func(err error) { m.status.Error(err.Error()) }
	m.remote.OnError = func(err error) { m.status.Error(err.Error()) }
	m.remote.OnListed = func(path string) { m.status.Info("Listed " + path) }
	m.updateButtons()
	return m
}

// Build lays out the widget tree. Call once.
func (m *FileManager) Build() fyne.CanvasObject {
	localHeader := widget.NewLabelWithStyle("Local Files", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	remoteHeader := widget.NewLabelWithStyle("Remote Files", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	localActions := container.NewHBox(m.localNewBtn, m.localRenameBtn, m.localDeleteBtn)
	remoteActions := container.NewHBox(m.remoteNewBtn, m.remoteRenameBtn, m.remoteDeleteBtn)

	localPane := container.NewBorder(
		container.NewVBox(localHeader), container.NewCenter(localActions), nil, nil, m.local)
	remotePane := container.NewBorder(
		container.NewVBox(remoteHeader), container.NewCenter(remoteActions), nil, nil, m.remote)

	split := container.NewHSplit(localPane, remotePane)
	split.SetOffset(0.5)

	transferBar := container.NewCenter(container.NewHBox(
		m.uploadBtn, HorizontalSpacer(12), m.downloadBtn))

	return container.NewBorder(transferBar, m.status, nil, nil, split)
}

// RefreshRemote triggers the initial remote listing.
func (m *FileManager) RefreshRemote() {
	m.remote.Navigate(m.remote.homePath)
}

func (m *FileManager) updateButtons() {
	localSel := m.local.Selected()
	remoteSel := m.remote.Selected()

	setEnabled(m.uploadBtn, localSel != nil && !localSel.IsDir)
	setEnabled(m.downloadBtn, remoteSel != nil && !remoteSel.IsDir)
	setEnabled(m.localRenameBtn, localSel != nil)
	setEnabled(m.localDeleteBtn, localSel != nil)
	setEnabled(m.remoteRenameBtn, remoteSel != nil)
	setEnabled(m.remoteDeleteBtn, remoteSel != nil)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (m *FileManager) onUpload() {
	sel := m.local.Selected()
	if sel == nil || sel.IsDir {
		return
	}
	req := transfer.Request{
		Kind:       transfer.OpUpload,
		LocalPath:  sel.Path,
		RemotePath: remote.JoinPath(m.remote.Path(), sel.Name),
		SizeHint:   sel.Size,
		Name:       sel.Name,
	}
	start := func() { m.runTransfer(req, "Uploading "+sel.Name, m.remote.Refresh) }

	// Probe the target so an existing remote file gets a confirm prompt.
	m.coord.Run(transfer.Request{
		Kind:       transfer.OpStat,
		RemotePath: req.RemotePath,
	}, nil, func(h *transfer.Handle, state transfer.State, res transfer.Result) {
		m.coord.Forget(h)
		if state != transfer.StateSucceeded {
			start()
			return
		}
		dialog.ShowConfirm("Overwrite",
			sel.Name+" already exists on the remote side. Overwrite?",
			func(ok bool) {
				if ok {
					start()
				}
			}, m.window)
	})
}

func (m *FileManager) onDownload() {
	sel := m.remote.Selected()
	if sel == nil || sel.IsDir {
		return
	}
	req := transfer.Request{
		Kind:       transfer.OpDownload,
		RemotePath: sel.Path,
		LocalPath:  filepath.Join(m.local.Path(), sel.Name),
		SizeHint:   sel.Size,
		Name:       sel.Name,
	}
	start := func() { m.runTransfer(req, "Downloading "+sel.Name, m.local.Refresh) }

	if _, err := os.Stat(req.LocalPath); err == nil {
		dialog.ShowConfirm("Overwrite",
			sel.Name+" already exists locally. Overwrite?",
			func(ok bool) {
				if ok {
					start()
				}
			}, m.window)
		return
	}
	start()
}

// runTransfer starts a transfer and tracks it in a progress dialog.
// refresh runs after a successful finish to show the new file.
func (m *FileManager) runTransfer(req transfer.Request, title string, refresh func()) {
	name := req.DisplayName()
	var h *transfer.Handle
	pd := NewProgressDialog(m.window, title, func() {
		m.coord.Cancel(h)
		m.status.Warning("Cancelling " + name + "...")
	})
	h = m.coord.Run(req, func(_ *transfer.Handle, done, total int64) {
		pd.SetProgress(done, total)
	}, func(h *transfer.Handle, state transfer.State, res transfer.Result) {
		m.coord.Forget(h)
		pd.Finish()
		switch state {
		case transfer.StateSucceeded:
			m.status.Success(name + " transferred")
			m.notifier.TransferComplete(req.Kind.String(), name)
			refresh()
		case transfer.StateCancelled:
			if res.Partial != nil {
				m.status.Warning(fmt.Sprintf("%s cancelled, partial file kept (%s)",
					name, humanize.IBytes(uint64(res.Partial.BytesWritten))))
			} else {
				m.status.Warning(name + " cancelled")
			}
			refresh()
		case transfer.StateFailed:
			m.status.Error(name + " failed")
			m.notifier.TransferFailed(req.Kind.String(), name, res.Err)
			dialog.ShowError(res.Err, m.window)
		}
	})
	pd.Show()
	m.status.Busy(title)
}

// runRemoteOp runs a non-transfer operation with busy status and a
// refresh of the remote pane on success.
func (m *FileManager) runRemoteOp(req transfer.Request, busy string) {
	m.coord.Run(req, nil, func(h *transfer.Handle, state transfer.State, res transfer.Result) {
		m.coord.Forget(h)
		switch state {
		case transfer.StateSucceeded:
			m.status.Success("Done")
			m.remote.Refresh()
		case transfer.StateFailed:
			m.status.Error(res.Err.Error())
			dialog.ShowError(res.Err, m.window)
		case transfer.StateCancelled:
			m.status.Warning("Cancelled")
		}
	})
	m.status.Busy(busy)
}

func (m *FileManager) onRemoteMkdir() {
	m.promptName("New Remote Folder", "Folder name", "", func(name string) {
		m.runRemoteOp(transfer.Request{
			Kind:       transfer.OpMkdir,
			RemotePath: remote.JoinPath(m.remote.Path(), name),
			Name:       name,
		}, "Creating "+name)
	})
}

func (m *FileManager) onRemoteRename() {
	sel := m.remote.Selected()
	if sel == nil {
		return
	}
	m.promptName("Rename", "New name", sel.Name, func(name string) {
		if name == sel.Name {
			return
		}
		m.runRemoteOp(transfer.Request{
			Kind:       transfer.OpRename,
			RemotePath: sel.Path,
			TargetPath: remote.JoinPath(remote.ParentPath(sel.Path), name),
			Name:       sel.Name,
		}, "Renaming "+sel.Name)
	})
}

func (m *FileManager) onRemoteDelete() {
	sel := m.remote.Selected()
	if sel == nil {
		return
	}
	what := sel.Name
	if sel.IsDir {
		what += " and its contents"
	}
	dialog.ShowConfirm("Delete", "Delete "+what+"?", func(ok bool) {
		if !ok {
			return
		}
		m.runRemoteOp(transfer.Request{
			Kind:       transfer.OpDelete,
			RemotePath: sel.Path,
			Name:       sel.Name,
		}, "Deleting "+sel.Name)
	}, m.window)
}

func (m *FileManager) onLocalMkdir() {
	m.promptName("New Local Folder", "Folder name", "", func(name string) {
		if err := os.Mkdir(filepath.Join(m.local.Path(), name), 0o755); err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		m.local.Refresh()
	})
}

func (m *FileManager) onLocalRename() {
	sel := m.local.Selected()
	if sel == nil {
		return
	}
	m.promptName("Rename", "New name", sel.Name, func(name string) {
		if name == sel.Name {
			return
		}
		if err := os.Rename(sel.Path, filepath.Join(m.local.Path(), name)); err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		m.local.Refresh()
	})
}

func (m *FileManager) onLocalDelete() {
	sel := m.local.Selected()
	if sel == nil {
		return
	}
	what := sel.Name
	if sel.IsDir {
		what += " and its contents"
	}
	dialog.ShowConfirm("Delete", "Delete "+what+"?", func(ok bool) {
		if !ok {
			return
		}
		if err := os.RemoveAll(sel.Path); err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		m.local.Refresh()
	}, m.window)
}

func (m *FileManager) promptName(title, label, initial string, confirm func(name string)) {
	entry := widget.NewEntry()
	entry.SetText(initial)
	items := []*widget.FormItem{widget.NewFormItem(label, entry)}
	dialog.ShowForm(title, "OK", "Cancel", items, func(ok bool) {
		if !ok || entry.Text == "" {
			return
		}
		confirm(entry.Text)
	}, m.window)
}
