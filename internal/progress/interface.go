package progress

import (
	"os"

	"golang.org/x/term"

	"github.com/rescale/imghub/internal/events"
)

// FileTracker follows per-file progress while a multipart body is streamed.
type FileTracker interface {
	// AddFile registers the file at position index in the submission.
	AddFile(index int, name string, size int64) FileHandle

	// Wait blocks until every bar has rendered its final state.
	Wait()
}

// FileHandle receives the byte counts for one file.
type FileHandle interface {
	// Add records n more bytes written.
	Add(n int)

	// Complete marks the file as fully written, or failed when err is non-nil.
	Complete(err error)
}

// Mode selects how submissions report progress.
type Mode string

const (
	// ModeAuto picks ModeBar on a terminal and ModeNone otherwise.
	ModeAuto Mode = "auto"
	// ModeBar shows one aggregate progressbar.
	ModeBar Mode = "bar"
	// ModeFiles shows one mpb bar per file.
	ModeFiles Mode = "files"
	// ModeEvents publishes ProgressEvents on the event bus.
	ModeEvents Mode = "events"
	// ModeNone reports nothing.
	ModeNone Mode = "none"
)

// IsTerminal reports whether stderr is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// New returns the Reporter and FileTracker for mode. Either may be a no-op.
// fileCount sizes the per-file UI.
func New(mode Mode, bus *events.EventBus, fileCount int) (Reporter, FileTracker) {
	if mode == ModeAuto || mode == "" {
		if IsTerminal() {
			mode = ModeBar
		} else {
			mode = ModeNone
		}
	}

	switch mode {
	case ModeBar:
		return NewBarReporter(os.Stderr), NoOpTracker{}
	case ModeFiles:
		return Discard, NewFileUI(fileCount)
	case ModeEvents:
		if bus != nil {
			return NewEventReporter(bus, "upload"), NoOpTracker{}
		}
	}
	return Discard, NoOpTracker{}
}

// NoOpTracker ignores per-file progress.
type NoOpTracker struct{}

// AddFile returns a handle that does nothing.
func (NoOpTracker) AddFile(int, string, int64) FileHandle { return noOpHandle{} }

// Wait returns immediately.
func (NoOpTracker) Wait() {}

type noOpHandle struct{}

func (noOpHandle) Add(int)        {}
func (noOpHandle) Complete(error) {}
