// Package notify sends desktop notifications when save and load batches
// finish, via github.com/gen2brain/beeep (toasts on Windows, notification
// center on macOS, D-Bus on Linux).
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/mediasink/mediasink/internal/logging"
	ustrings "github.com/mediasink/mediasink/internal/util/strings"
)

const appTitle = "mediasink"

// Notifier sends batch-outcome notifications. Send failures are logged,
// never surfaced; a broken notification daemon must not fail a save.
type Notifier struct {
	logger  *logging.Logger
	mu      sync.RWMutex
	enabled bool
}

// NewNotifier builds a notifier; enabled usually comes from config or the
// --notify flag.
func NewNotifier(enabled bool, logger *logging.Logger) *Notifier {
	return &Notifier{logger: logger, enabled: enabled}
}

// SetEnabled flips notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled reports whether notifications are sent.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// SaveComplete announces a finished save batch.
func (n *Notifier) SaveComplete(countLocal, countCloud int, provider, outputPath string) {
	if !n.IsEnabled() {
		return
	}
	var message string
	switch {
	case countCloud > 0 && countLocal > 0:
		message = fmt.Sprintf("Saved %d %s locally and %d to %s.",
			countLocal, ustrings.Pluralize("file", int64(countLocal)), countCloud, provider)
	case countCloud > 0:
		message = fmt.Sprintf("Saved %d %s to %s.",
			countCloud, ustrings.Pluralize("file", int64(countCloud)), provider)
	default:
		message = fmt.Sprintf("Saved %d %s to:\n%s",
			countLocal, ustrings.Pluralize("file", int64(countLocal)), shortenPath(outputPath))
	}
	n.send("Save Complete", message)
}

// SaveFailed announces a failed save batch.
func (n *Notifier) SaveFailed(errorMsg string) {
	if !n.IsEnabled() {
		return
	}
	n.send("Save Failed", truncate(errorMsg, 100))
}

// LoadComplete announces a finished load batch.
func (n *Notifier) LoadComplete(count int, provider string) {
	if !n.IsEnabled() {
		return
	}
	files := ustrings.Pluralize("file", int64(count))
	message := fmt.Sprintf("Loaded %d %s.", count, files)
	if provider != "" {
		message = fmt.Sprintf("Loaded %d %s from %s.", count, files, provider)
	}
	n.send("Load Complete", message)
}

// LoadFailed announces a failed load batch.
func (n *Notifier) LoadFailed(errorMsg string) {
	if !n.IsEnabled() {
		return
	}
	n.send("Load Failed", truncate(errorMsg, 100))
}

// Alert sends a prominent notification for problems needing attention.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}
	if err := beeep.Alert(appTitle, message, ""); err != nil {
		if err := beeep.Notify(appTitle, message, ""); err != nil && n.logger != nil {
			n.logger.Warn().Err(err).Msg("Failed to send alert notification")
		}
	}
}

func (n *Notifier) send(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil && n.logger != nil {
		n.logger.Warn().Err(err).Str("title", title).Msg("Failed to send notification")
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for notification display.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}
