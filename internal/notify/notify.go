// Package notify reports the outcome of each submission to the user.
package notify

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/logging"
)

// Notifier receives exactly one notification per finished submission.
type Notifier interface {
	Success(title, message string)
	Failure(title, message string)
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are printed. Disabled notifications
	// are still logged at debug level.
	Enabled bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{Enabled: true}
}

// Console prints notifications as single lines and mirrors them to the logger.
type Console struct {
	logger  *logging.Logger
	out     io.Writer
	enabled bool
	mu      sync.RWMutex
}

// NewConsole creates a console notifier writing to out (stderr when nil).
func NewConsole(cfg *Config, logger *logging.Logger, out io.Writer) *Console {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Console{
		logger:  logger,
		out:     out,
		enabled: cfg.Enabled,
	}
}

// SetEnabled enables or disables notifications.
func (n *Console) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Console) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// Success prints a success notification.
func (n *Console) Success(title, message string) {
	n.send("✓", title, message)
	n.logger.Debug().Str("title", title).Str("message", message).Msg("Success notification")
}

// Failure prints a failure notification.
func (n *Console) Failure(title, message string) {
	n.send("✗", title, message)
	n.logger.Debug().Str("title", title).Str("message", message).Msg("Failure notification")
}

func (n *Console) send(mark, title, message string) {
	if !n.IsEnabled() {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	title = truncate(title, constants.NotificationTitleMax)
	message = truncate(message, constants.NotificationMessageMax)
	if message == "" {
		fmt.Fprintf(n.out, "%s %s\n", mark, title)
		return
	}
	fmt.Fprintf(n.out, "%s %s: %s\n", mark, title, message)
}

// Notification is one recorded notification.
type Notification struct {
	Success bool
	Title   string
	Message string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Success records a success notification.
func (r *Recorder) Success(title, message string) {
	r.add(Notification{Success: true, Title: title, Message: message})
}

// Failure records a failure notification.
func (r *Recorder) Failure(title, message string) {
	r.add(Notification{Success: false, Title: title, Message: message})
}

func (r *Recorder) add(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Multi fans notifications out to several notifiers.
type Multi []Notifier

// Success forwards to every notifier.
func (m Multi) Success(title, message string) {
	for _, n := range m {
		n.Success(title, message)
	}
}

// Failure forwards to every notifier.
func (m Multi) Failure(title, message string) {
	for _, n := range m {
		n.Failure(title, message)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ShortenPath abbreviates a long path for display in notifications.
func ShortenPath(path string) string {
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
