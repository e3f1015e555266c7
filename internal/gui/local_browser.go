package gui

import (
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"github.com/mfat/mfatfm/internal/localfs"
	"github.com/mfat/mfatfm/internal/logging"
)

// LocalBrowser is the left pane: a navigable listing of a local directory.
type LocalBrowser struct {
	widget.BaseWidget

	logger *logging.Logger

	currentPath string
	history     []string
	showHidden  bool
	entries     []localfs.FileEntry
	selected    int

	pathEntry   *widget.Entry
	backBtn     *widget.Button
	upBtn       *widget.Button
	homeBtn     *widget.Button
	refreshBtn  *widget.Button
	openBtn     *widget.Button
	hiddenCheck *widget.Check
	fileList    *widget.List

	// OnSelectionChanged fires with nil when the selection is cleared.
	OnSelectionChanged func(entry *localfs.FileEntry)
	// OnError receives listing failures for display by the owner.
	OnError func(err error)
}

func NewLocalBrowser(startPath string, showHidden bool, logger *logging.Logger) *LocalBrowser {
	b := &LocalBrowser{
		logger:     logger,
		showHidden: showHidden,
		selected:   -1,
	}
	b.pathEntry = widget.NewEntry()
	b.pathEntry.OnSubmitted = func(p string) { b.Navigate(p) }
	b.backBtn = NewToolButton(theme.NavigateBackIcon(), b.goBack)
	b.upBtn = NewToolButton(theme.MoveUpIcon(), b.goUp)
	b.homeBtn = NewToolButton(theme.HomeIcon(), b.goHome)
	b.refreshBtn = NewToolButton(theme.ViewRefreshIcon(), b.Refresh)
	b.openBtn = NewToolButton(theme.FolderOpenIcon(), b.openSelected)
	b.hiddenCheck = widget.NewCheck("Hidden", func(on bool) {
		b.showHidden = on
		b.Refresh()
	})
	b.hiddenCheck.SetChecked(showHidden)
	b.fileList = b.buildList()
	b.ExtendBaseWidget(b)

	b.Navigate(localfs.NormalizePath(startPath))
	return b
}

func (b *LocalBrowser) CreateRenderer() fyne.WidgetRenderer {
	nav := container.NewBorder(nil, nil,
		container.NewHBox(b.backBtn, b.upBtn, b.homeBtn),
		container.NewHBox(b.openBtn, b.refreshBtn, b.hiddenCheck),
		b.pathEntry)
	return widget.NewSimpleRenderer(container.NewBorder(nav, nil, nil, nil, b.fileList))
}

func (b *LocalBrowser) buildList() *widget.List {
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
			row.Objects[2].(*widget.Label).SetText(describeLocal(e))
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

func describeLocal(e localfs.FileEntry) string {
	if e.IsDir {
		if e.ItemCount >= 0 {
			return fmt.Sprintf("%d items", e.ItemCount)
		}
		return "folder"
	}
	return humanize.IBytes(uint64(e.Size))
}

// Path returns the directory currently shown.
func (b *LocalBrowser) Path() string { return b.currentPath }

// Selected returns the selected entry, or nil.
func (b *LocalBrowser) Selected() *localfs.FileEntry {
	if b.selected < 0 || b.selected >= len(b.entries) {
		return nil
	}
	e := b.entries[b.selected]
	return &e
}

// Navigate lists the given directory and pushes the previous one onto
// the back history.
func (b *LocalBrowser) Navigate(path string) {
	b.navigate(path, true)
}

func (b *LocalBrowser) navigate(path string, push bool) {
	normalized := localfs.NormalizePath(path)
	entries, err := localfs.ListDirectory(normalized, localfs.ListOptions{
		IncludeHidden: b.showHidden,
		CountItems:    true,
	})
	if err != nil {
		b.reportError(err)
		return
	}
	if push && b.currentPath != "" && b.currentPath != normalized {
		b.history = append(b.history, b.currentPath)
	}
	b.currentPath = normalized
	b.entries = entries
	b.clearSelection()
	b.pathEntry.SetText(normalized)
	b.fileList.Refresh()
}

// Refresh re-lists the current directory.
func (b *LocalBrowser) Refresh() {
	if b.currentPath == "" {
		return
	}
	entries, err := localfs.ListDirectory(b.currentPath, localfs.ListOptions{
		IncludeHidden: b.showHidden,
		CountItems:    true,
	})
	if err != nil {
		b.reportError(err)
		return
	}
	b.entries = entries
	b.clearSelection()
	b.fileList.Refresh()
}

func (b *LocalBrowser) goBack() {
	if len(b.history) == 0 {
		return
	}
	prev := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.navigate(prev, false)
}

func (b *LocalBrowser) goUp() {
	parent := filepath.Dir(b.currentPath)
	if parent != b.currentPath {
		b.Navigate(parent)
	}
}

func (b *LocalBrowser) goHome() {
	if home, err := os.UserHomeDir(); err == nil {
		b.Navigate(home)
	}
}

func (b *LocalBrowser) openSelected() {
	if e := b.Selected(); e != nil && e.IsDir {
		b.Navigate(e.Path)
	}
}

func (b *LocalBrowser) clearSelection() {
	b.selected = -1
	b.fileList.UnselectAll()
	if b.OnSelectionChanged != nil {
		b.OnSelectionChanged(nil)
	}
}

func (b *LocalBrowser) reportError(err error) {
	b.logger.Error().Err(err).Msg("local listing failed")
	if b.OnError != nil {
		b.OnError(err)
	}
}
