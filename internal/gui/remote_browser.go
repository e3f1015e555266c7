package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"github.com/mfat/mfatfm/internal/logging"
	"github.com/mfat/mfatfm/internal/remote"
	"github.com/mfat/mfatfm/internal/transfer"
)

// RemoteBrowser is the right pane: a listing of a remote directory,
// fetched asynchronously through the operation coordinator. Listing
// callbacks arrive on the UI thread, so widget state is touched
// without further synchronisation.
type RemoteBrowser struct {
	widget.BaseWidget

	coord  *transfer.Coordinator
	logger *logging.Logger

	homePath    string
	currentPath string
	history     []string
	entries     []remote.Entry
	selected    int
	pendingList *transfer.Handle

	pathEntry  *widget.Entry
	backBtn    *widget.Button
	upBtn      *widget.Button
	homeBtn    *widget.Button
	refreshBtn *widget.Button
	openBtn    *widget.Button
	loading    *widget.Activity
	fileList   *widget.List

	OnSelectionChanged func(entry *remote.Entry)
	OnError            func(err error)
	// OnListed fires after a successful listing with the shown path.
	OnListed func(path string)
}

func NewRemoteBrowser(coord *transfer.Coordinator, homePath string, logger *logging.Logger) *RemoteBrowser {
	b := &RemoteBrowser{
		coord:    coord,
		logger:   logger,
		homePath: homePath,
		selected: -1,
	}
	b.pathEntry = widget.NewEntry()
	b.pathEntry.OnSubmitted = func(p string) { b.Navigate(p) }
	b.backBtn = NewToolButton(theme.NavigateBackIcon(), b.goBack)
	b.upBtn = NewToolButton(theme.MoveUpIcon(), b.goUp)
	b.homeBtn = NewToolButton(theme.HomeIcon(), func() { b.Navigate(b.homePath) })
	b.refreshBtn = NewToolButton(theme.ViewRefreshIcon(), b.Refresh)
	b.openBtn = NewToolButton(theme.FolderOpenIcon(), b.openSelected)
	b.loading = widget.NewActivity()
	b.loading.Hide()
	b.fileList = b.buildList()
	b.ExtendBaseWidget(b)
	return b
}

func (b *RemoteBrowser) CreateRenderer() fyne.WidgetRenderer {
	nav := container.NewBorder(nil, nil,
		container.NewHBox(b.backBtn, b.upBtn, b.homeBtn),
		container.NewHBox(b.loading, b.openBtn, b.refreshBtn),
		b.pathEntry)
	return widget.NewSimpleRenderer(container.NewBorder(nav, nil, nil, nil, b.fileList))
}

func (b *RemoteBrowser) buildList() *widget.List {
	list := widget.NewList(
		func() int { return len(b.entries) },
		func() fyne.CanvasObject {
			icon := widget.NewIcon(theme.FileIcon())
			name := widget.NewLabel("name")
			name.Truncation = fyne.TextTruncateEllipsis
			size := widget.NewLabel("size")
			return container.NewBorder(nil, nil, icon, size, name)
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < 0 || i >= len(b.entries) {
				return
			}
			e := b.entries[i]
			row := o.(*fyne.Container)
			row.Objects[1].(*widget.Icon).SetResource(entryIcon(e.IsDir))
			row.Objects[0].(*widget.Label).SetText(e.Name)
			row.Objects[2].(*widget.Label).SetText(describeRemote(e))
		},
	)
	list.OnSelected = func(i widget.ListItemID) {
		if i < 0 || i >= len(b.entries) {
			return
		}
		b.selected = i
		if b.OnSelectionChanged != nil {
			e := b.entries[i]
			b.OnSelectionChanged(&e)
		}
	}
	list.OnUnselected = func(widget.ListItemID) {
		b.selected = -1
		if b.OnSelectionChanged != nil {
			b.OnSelectionChanged(nil)
		}
	}
	return list
}

func describeRemote(e remote.Entry) string {
	if e.IsDir {
		if e.ItemCount >= 0 {
			return fmt.Sprintf("%d items", e.ItemCount)
		}
		return "folder"
	}
	return humanize.IBytes(uint64(e.Size))
}

func (b *RemoteBrowser) Path() string { return b.currentPath }

func (b *RemoteBrowser) Selected() *remote.Entry {
	if b.selected < 0 || b.selected >= len(b.entries) {
		return nil
	}
	e := b.entries[b.selected]
	return &e
}

// Navigate requests a listing of the given directory. A listing still
// in flight is abandoned first; its results would arrive for a path
// the user has already left.
func (b *RemoteBrowser) Navigate(path string) {
	b.list(path, true)
}

// Refresh re-lists the current directory.
func (b *RemoteBrowser) Refresh() {
	if b.currentPath != "" {
		b.list(b.currentPath, false)
	}
}

func (b *RemoteBrowser) list(path string, push bool) {
	if b.pendingList != nil {
		b.coord.Cancel(b.pendingList)
		b.coord.Forget(b.pendingList)
		b.pendingList = nil
	}
	b.loading.Show()
	b.loading.Start()

	h := b.coord.Run(transfer.Request{
		Kind:       transfer.OpList,
		RemotePath: path,
	}, nil, func(h *transfer.Handle, state transfer.State, res transfer.Result) {
		b.coord.Forget(h)
		if b.pendingList == h {
			b.pendingList = nil
		}
		b.loading.Stop()
		b.loading.Hide()
		switch state {
		case transfer.StateSucceeded:
			b.applyListing(path, res.Entries, push)
		case transfer.StateFailed:
			b.logger.Error().Err(res.Err).Str("path", path).Msg("remote listing failed")
			if b.OnError != nil {
				b.OnError(res.Err)
			}
		}
		// A cancelled listing is the superseded one; nothing to show.
	})
	b.pendingList = h
}

func (b *RemoteBrowser) applyListing(path string, entries []remote.Entry, push bool) {
	if push && b.currentPath != "" && b.currentPath != path {
		b.history = append(b.history, b.currentPath)
	}
	b.currentPath = path
	b.entries = entries
	b.selected = -1
	b.fileList.UnselectAll()
	if b.OnSelectionChanged != nil {
		b.OnSelectionChanged(nil)
	}
	b.pathEntry.SetText(path)
	b.fileList.Refresh()
	if b.OnListed != nil {
		b.OnListed(path)
	}
}

func (b *RemoteBrowser) goBack() {
	if len(b.history) == 0 {
		return
	}
	prev := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.list(prev, false)
}

func (b *RemoteBrowser) goUp() {
	parent := remote.ParentPath(b.currentPath)
	if parent != b.currentPath {
		b.Navigate(parent)
	}
}

func (b *RemoteBrowser) openSelected() {
	if e := b.Selected(); e != nil && e.IsDir {
		b.Navigate(e.Path)
	}
}
