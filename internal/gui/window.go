package gui

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/mfat/mfatfm/internal/config"
	"github.com/mfat/mfatfm/internal/events"
	"github.com/mfat/mfatfm/internal/logging"
	"github.com/mfat/mfatfm/internal/notify"
	"github.com/mfat/mfatfm/internal/remote"
	"github.com/mfat/mfatfm/internal/transfer"
)

// RunWindow opens the main window, prompts for connection details and,
// once connected, hands the session to a coordinator driving the
// two-pane file manager. Blocks until the window closes.
func RunWindow(app fyne.App, cfg *config.Config, logger *logging.Logger) {
	win := app.NewWindow("mfatfm")
	win.Resize(fyne.NewSize(1000, 640))

	showConnectForm(win, cfg, logger)
	win.ShowAndRun()
}

func showConnectForm(win fyne.Window, cfg *config.Config, logger *logging.Logger) {
	host := widget.NewEntry()
	host.SetText(cfg.Host)
	port := widget.NewEntry()
	port.SetText(strconv.Itoa(cfg.Port))
	user := widget.NewEntry()
	user.SetText(cfg.User)
	password := widget.NewPasswordEntry()
	keyFile := widget.NewEntry()
	keyFile.SetText(cfg.KeyFile)
	keyFile.SetPlaceHolder("optional, tried before password")

	form := widget.NewForm(
		widget.NewFormItem("Host", host),
		widget.NewFormItem("Port", port),
		widget.NewFormItem("User", user),
		widget.NewFormItem("Password", password),
		widget.NewFormItem("Key file", keyFile),
	)
	form.SubmitText = "Connect"
	form.OnSubmit = func() {
		p, err := strconv.Atoi(port.Text)
		if err != nil || p <= 0 || p > 65535 {
			dialog.ShowError(fmt.Errorf("invalid port %q", port.Text), win)
			return
		}
		cfg.Host = host.Text
		cfg.Port = p
		cfg.User = user.Text
		cfg.KeyFile = keyFile.Text
		if path, err := config.Path(); err == nil {
			if err := cfg.Save(path); err != nil {
				logger.Warn().Err(err).Msg("could not save config")
			}
		}
		connect(win, cfg, password.Text, logger)
	}

	win.SetContent(form)
}

// connect dials in the background and swaps the window content to the
// file manager on success. Dialing must not run on the UI thread.
func connect(win fyne.Window, cfg *config.Config, password string, logger *logging.Logger) {
	win.SetContent(widget.NewLabel("Connecting to " + cfg.Host + "..."))

	bus := events.NewEventBus(0)

	go func() {
		session, err := remote.Dial(remote.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: password,
			KeyFile:  cfg.KeyFile,
			Timeout:  15 * time.Second,
		})
		if err != nil {
			bus.Publish(events.ConnectionEvent{
				BaseEvent: events.BaseEvent{EventType: events.EventConnectionError, Time: time.Now()},
				Host:      cfg.Host, User: cfg.User, Err: err,
			})
			fyne.Do(func() {
				dialog.ShowError(err, win)
				showConnectForm(win, cfg, logger)
			})
			return
		}
		bus.Publish(events.ConnectionEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventConnected, Time: time.Now()},
			Host:      cfg.Host, User: cfg.User,
		})
		home := session.HomeDir()
		fyne.Do(func() {
			buildManager(win, cfg, session, bus, home, logger)
		})
	}()
}

func buildManager(win fyne.Window, cfg *config.Config, session remote.Session, bus *events.EventBus, remoteHome string, logger *logging.Logger) {
	coord := transfer.NewCoordinator(session, transfer.Options{
		Wake:   fyne.Do,
		Bus:    bus,
		Logger: logger,
	})
	notifier := notify.NewNotifier(logger, true)

	remoteStart := cfg.RemoteDir
	if remoteStart == "" || remoteStart == "~" {
		remoteStart = remoteHome
	}
	m := NewFileManager(win, coord, cfg.LocalDir, remoteStart, cfg.ShowHidden, notifier, logger)
	m.watchBus(bus)

	win.SetContent(m.Build())
	win.SetTitle(fmt.Sprintf("mfatfm - %s@%s", cfg.User, cfg.Host))
	win.SetOnClosed(func() {
		coord.Shutdown()
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("close session")
		}
		bus.Publish(events.ConnectionEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventDisconnected, Time: time.Now()},
			Host:      cfg.Host, User: cfg.User,
		})
		bus.Close()
	})
	m.RefreshRemote()
}

// watchBus mirrors bus activity into the log and surfaces connection
// loss on the status bar. Runs until the bus closes.
func (m *FileManager) watchBus(bus *events.EventBus) {
	ch := bus.SubscribeAll()
	go func() {
		for ev := range ch {
			switch e := ev.(type) {
			case events.ConnectionEvent:
				if e.Type() == events.EventDisconnected || e.Type() == events.EventConnectionError {
					fyne.Do(func() {
						m.status.Error("Connection lost: " + e.Host)
					})
				}
			case *events.OperationEvent:
				m.logger.Debug().
					Str("event", string(ev.Type())).
					Str("kind", e.Kind).
					Str("name", e.Name).
					Msg("bus")
			}
		}
	}()
}
