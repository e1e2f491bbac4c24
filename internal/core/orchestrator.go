// Package core drives a submission from the selection buffer through the
// transfer client into the history store.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rescale/imghub/internal/events"
	"github.com/rescale/imghub/internal/history"
	"github.com/rescale/imghub/internal/logging"
	"github.com/rescale/imghub/internal/notify"
	"github.com/rescale/imghub/internal/selection"
	"github.com/rescale/imghub/internal/transfer"
	"github.com/rescale/imghub/internal/util/strings"
)

// State is the submission state.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateSubmitting has one submission in flight.
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

var (
	// ErrSubmitInProgress is returned when Submit is called while another
	// submission is in flight. The call is rejected, not queued.
	ErrSubmitInProgress = errors.New("a submission is already in progress")

	// ErrEmptySelection is returned when there is nothing to submit.
	ErrEmptySelection = errors.New("no images selected")
)

// Submitter sends a batch and normalizes the outcome.
type Submitter interface {
	Submit(ctx context.Context, blobs []selection.Blob) transfer.Result
}

// HistoryStore is the persisted history the orchestrator records into.
type HistoryStore interface {
	Load() []history.Entry
	Append(records []history.Record) ([]history.Entry, error)
	Clear()
}

// Outcome describes a finished submission.
type Outcome struct {
	Result  transfer.Result
	Entries []history.Entry
}

// Orchestrator owns the selection, the in-memory history view and the
// submission state machine. Independent instances share nothing.
type Orchestrator struct {
	selection *selection.Buffer
	submitter Submitter
	store     HistoryStore
	notifier  notify.Notifier
	eventBus  *events.EventBus
	logger    *logging.Logger

	mu    sync.Mutex
	state State
	view  []history.Entry
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventBus publishes submission and history events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(o *Orchestrator) { o.eventBus = bus }
}

// WithNotifier sets the notifier (default: console on stderr).
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator wires the components and loads the initial history view.
func NewOrchestrator(sel *selection.Buffer, submitter Submitter, store HistoryStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		selection: sel,
		submitter: submitter,
		store:     store,
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.notifier == nil {
		o.notifier = notify.NewConsole(nil, o.logger, nil)
	}
	if o.selection == nil {
		o.selection = selection.NewBuffer(selection.WithEventBus(o.eventBus), selection.WithLogger(o.logger))
	}
	o.view = store.Load()
	return o
}

// Selection returns the selection buffer.
func (o *Orchestrator) Selection() *selection.Buffer {
	return o.selection
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns a copy of the in-memory history view, newest first.
func (o *Orchestrator) History() []history.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]history.Entry, len(o.view))
	copy(out, o.view)
	return out
}

// Refresh reloads the view from the store.
func (o *Orchestrator) Refresh() []history.Entry {
	entries := o.store.Load()
	o.mu.Lock()
	o.view = entries
	o.mu.Unlock()
	return o.History()
}

// Submit sends the current selection. A transfer failure is not an error:
// it is recorded in history, reported through the notifier and returned in
// the Outcome with the selection left intact for a retry. Errors are
// returned only when the submission could not start or its outcome could
// not be persisted.
func (o *Orchestrator) Submit(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}
	submitted := o.selection.Snapshot()
	if len(submitted) == 0 {
		o.mu.Unlock()
		return Outcome{}, ErrEmptySelection
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	blobs := make([]selection.Blob, len(submitted))
	sentIDs := make([]string, len(submitted))
	for i, e := range submitted {
		blobs[i] = e.Blob
		sentIDs[i] = e.ID
	}

	defer func() {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
	}()

	o.publishSubmit(events.EventSubmitStarted, len(blobs), nil, "", 0)
	o.logger.Info().Int("files", len(blobs)).Msg("Submitting selection")

	result := o.submitter.Submit(ctx, blobs)

	var records []history.Record
	if result.OK() {
		records = []history.Record{result.Payload}
	} else {
		records = []history.Record{errorRecord(result, blobs)}
	}

	entries, err := o.store.Append(records)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to record submission")
		o.notifier.Failure("Could not save result", err.Error())
		o.publishSubmit(events.EventSubmitFailed, len(blobs), nil, err.Error(), result.Duration)
		return Outcome{Result: result}, fmt.Errorf("failed to record submission: %w", err)
	}

	o.mu.Lock()
	o.view = append(append(make([]history.Entry, 0, len(entries)+len(o.view)), entries...), o.view...)
	total := len(o.view)
	o.mu.Unlock()

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if o.eventBus != nil {
		o.eventBus.PublishHistoryChanged(ids, false, total)
	}

	if result.OK() {
		// Only the sent images leave the selection; later additions stay.
		o.selection.Discard(sentIDs...)
		o.notifier.Success("Upload complete", fmt.Sprintf("%d %s analysed", len(blobs), strings.Pluralize("image", int64(len(blobs)))))
		o.publishSubmit(events.EventSubmitCompleted, len(blobs), ids, "", result.Duration)
		o.logger.Info().Strs("entries", ids).Dur("duration", result.Duration).Msg("Submission succeeded")
	} else {
		o.notifier.Failure("Upload failed", result.Reason)
		o.publishSubmit(events.EventSubmitFailed, len(blobs), ids, result.Reason, result.Duration)
		o.logger.Warn().Str("reason", result.Reason).Str("error_type", result.ErrorType).Msg("Submission failed")
	}

	return Outcome{Result: result, Entries: entries}, nil
}

// ClearHistory clears the store and the view. It always succeeds; store
// errors are logged by the store.
func (o *Orchestrator) ClearHistory() {
	o.store.Clear()

	o.mu.Lock()
	o.view = []history.Entry{}
	o.mu.Unlock()

	if o.eventBus != nil {
		o.eventBus.PublishHistoryChanged(nil, true, 0)
	}
	o.notifier.Success("History cleared", "All upload history has been removed.")
}

func (o *Orchestrator) publishSubmit(t events.EventType, fileCount int, ids []string, reason string, d time.Duration) {
	if o.eventBus != nil {
		o.eventBus.PublishSubmit(t, fileCount, ids, reason, d)
	}
}

// errorRecord is the history payload for a failed submission.
func errorRecord(r transfer.Result, blobs []selection.Blob) history.Record {
	names := make([]any, len(blobs))
	for i, b := range blobs {
		names[i] = b.Name()
	}
	reason := r.Reason
	if reason == "" {
		reason = "upload failed"
	}
	rec := history.Record{
		history.KeyError:     reason,
		history.KeyErrorType: r.ErrorType,
		history.KeyFiles:     names,
		history.KeyFileCount: len(blobs),
	}
	if r.StatusCode != 0 {
		rec[history.KeyStatusCode] = r.StatusCode
	}
	return rec
}
