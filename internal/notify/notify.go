// Package notify provides desktop notifications for finished transfers.
// It uses github.com/gen2brain/beeep for cross-platform support.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/mfat/mfatfm/internal/logging"
)

const appName = "mfatfm"

// Notifier sends desktop notifications about transfer outcomes.
type Notifier struct {
	logger  *logging.Logger
	mu      sync.RWMutex
	enabled bool
}

// NewNotifier creates a notifier. A nil logger disables error reporting.
func NewNotifier(logger *logging.Logger, enabled bool) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Notifier{logger: logger, enabled: enabled}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
}

// Enabled reports whether notifications are being sent.
func (n *Notifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// TransferComplete notifies about a finished upload or download.
func (n *Notifier) TransferComplete(kind, name string) {
	n.send(fmt.Sprintf("%s complete", kind), name)
}

// TransferFailed notifies about a failed upload or download.
func (n *Notifier) TransferFailed(kind, name string, err error) {
	n.send(fmt.Sprintf("%s failed", kind), fmt.Sprintf("%s: %v", name, err))
}

func (n *Notifier) send(title, body string) {
	if !n.Enabled() {
		return
	}
	// Notification failures are logged, never surfaced: a missing desktop
	// notification daemon must not affect a transfer's outcome.
	if err := beeep.Notify(appName+": "+title, body, ""); err != nil {
		n.logger.Debug().Err(err).Str("title", title).Msg("desktop notification failed")
	}
}
