package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusLevel controls the icon shown next to the status message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusBusy
)

// StatusBar is the single-line status strip at the bottom of the window.
// All methods must be called on the UI thread.
type StatusBar struct {
	widget.BaseWidget

	icon     *widget.Icon
	label    *widget.Label
	activity *widget.Activity
}

func NewStatusBar() *StatusBar {
	s := &StatusBar{
		icon:     widget.NewIcon(theme.InfoIcon()),
		label:    widget.NewLabel("Ready"),
		activity: widget.NewActivity(),
	}
	s.activity.Hide()
	s.label.Truncation = fyne.TextTruncateEllipsis
	s.ExtendBaseWidget(s)
	return s
}

func (s *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	row := container.NewBorder(nil, nil,
		container.NewHBox(HorizontalSpacer(4), s.icon, s.activity), nil,
		s.label)
	return widget.NewSimpleRenderer(row)
}

// Set updates the message and icon. Busy level shows a spinner instead
// of an icon.
func (s *StatusBar) Set(level StatusLevel, msg string) {
	s.label.SetText(msg)
	if level == StatusBusy {
		s.icon.Hide()
		s.activity.Show()
		s.activity.Start()
		return
	}
	s.activity.Stop()
	s.activity.Hide()
	s.icon.Show()
	switch level {
	case StatusSuccess:
		s.icon.SetResource(theme.ConfirmIcon())
	case StatusWarning:
		s.icon.SetResource(theme.WarningIcon())
	case StatusError:
		s.icon.SetResource(theme.ErrorIcon())
	default:
		s.icon.SetResource(theme.InfoIcon())
	}
}

func (s *StatusBar) Info(msg string)    { s.Set(StatusInfo, msg) }
func (s *StatusBar) Success(msg string) { s.Set(StatusSuccess, msg) }
func (s *StatusBar) Warning(msg string) { s.Set(StatusWarning, msg) }
func (s *StatusBar) Error(msg string)   { s.Set(StatusError, msg) }
func (s *StatusBar) Busy(msg string)    { s.Set(StatusBusy, msg) }
