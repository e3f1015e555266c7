package gui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"
)

// speedAlpha is the smoothing factor for the transfer-rate estimate.
const speedAlpha = 0.25

// ProgressDialog shows a single transfer with a cancel button. The
// dismiss button requests cancellation while the transfer is running
// and simply closes the dialog afterwards.
type ProgressDialog struct {
	dlg    *dialog.CustomDialog
	bar    *widget.ProgressBar
	detail *widget.Label

	onCancel func()
	finished bool

	lastBytes int64
	lastTime  time.Time
	rate      float64
}

func NewProgressDialog(parent fyne.Window, title string, onCancel func()) *ProgressDialog {
	p := &ProgressDialog{
		bar:      widget.NewProgressBar(),
		detail:   widget.NewLabel("Starting..."),
		onCancel: onCancel,
	}
	content := container.NewVBox(p.detail, p.bar, VerticalSpacer(4))
	p.dlg = dialog.NewCustom(title, "Cancel", content, parent)
	p.dlg.Resize(fyne.NewSize(420, 0))
	p.dlg.SetOnClosed(func() {
		if !p.finished && p.onCancel != nil {
			p.onCancel()
		}
	})
	return p
}

func (p *ProgressDialog) Show() { p.dlg.Show() }

// SetProgress updates the bar and the byte/rate readout. A total of
// zero or below means the size is unknown.
func (p *ProgressDialog) SetProgress(done, total int64) {
	now := time.Now()
	if !p.lastTime.IsZero() {
		if dt := now.Sub(p.lastTime).Seconds(); dt > 0 {
			instant := float64(done-p.lastBytes) / dt
			if p.rate == 0 {
				p.rate = instant
			} else {
				p.rate = speedAlpha*instant + (1-speedAlpha)*p.rate
			}
		}
	}
	p.lastBytes = done
	p.lastTime = now

	rate := ""
	if p.rate > 0 {
		rate = fmt.Sprintf(" (%s/s)", humanize.IBytes(uint64(p.rate)))
	}
	if total > 0 {
		p.bar.SetValue(float64(done) / float64(total))
		p.detail.SetText(fmt.Sprintf("%s of %s%s",
			humanize.IBytes(uint64(done)), humanize.IBytes(uint64(total)), rate))
	} else {
		p.detail.SetText(fmt.Sprintf("%s transferred%s",
			humanize.IBytes(uint64(done)), rate))
	}
}

// Finish marks the dialog done and closes it. After this the dismiss
// callback no longer requests cancellation.
func (p *ProgressDialog) Finish() {
	p.finished = true
	p.dlg.Hide()
}
