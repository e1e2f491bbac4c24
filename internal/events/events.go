// Package events provides a small in-process pub/sub bus. Any presentation
// layer (CLI, session shell) subscribes to it to refresh its view of the
// selection, the submission state and the history.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rescale/imghub/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventProgress EventType = "progress"
	EventLog      EventType = "log"

	EventSelectionChanged EventType = "selection_changed" // Selection buffer mutated
	EventSubmitStarted    EventType = "submit_started"    // Idle -> Submitting
	EventSubmitCompleted  EventType = "submit_completed"  // Submission stored as success
	EventSubmitFailed     EventType = "submit_failed"     // Submission stored as failure, or persistence failed
	EventHistoryChanged   EventType = "history_changed"   // History view appended or cleared
)

// LogLevel is the severity of a LogEvent.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var logLevelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(logLevelNames) {
		return "UNKNOWN"
	}
	return logLevelNames[l]
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ProgressEvent represents byte progress of an outgoing submission
type ProgressEvent struct {
	BaseEvent
	Stage        string  // "upload"
	Progress     float64 // 0.0 to 1.0
	BytesCurrent int64
	BytesTotal   int64
	Message      string
}

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Stage   string
	Error   error
}

// SelectionChangedEvent carries the ids of the entries a mutation touched.
type SelectionChangedEvent struct {
	BaseEvent
	IDs    []string
	Action string // "add", "remove", "clear"
}

// SubmitEvent represents a transition of the submission state machine.
type SubmitEvent struct {
	BaseEvent
	FileCount int
	EntryIDs  []string // history entries written by this submission
	Reason    string   // failure reason, empty on success
	Duration  time.Duration
}

// HistoryChangedEvent is published after the in-memory history view changes.
type HistoryChangedEvent struct {
	BaseEvent
	Added   []string // ids prepended to the view
	Cleared bool
	Total   int
}

// EventBus fans events out to buffered subscriber channels. Publishing
// never blocks: an event for a full channel is dropped and counted.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	all         []chan Event
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize
// events, clamped to the configured default and maximum.
func NewEventBus(bufferSize int) *EventBus {
	switch {
	case bufferSize <= 0:
		bufferSize = constants.EventBusDefaultBuffer
	case bufferSize > constants.EventBusMaxBuffer:
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving events of one type. On a closed bus
// the channel is already closed.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	return eb.subscribe(func(ch chan Event) {
		eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	})
}

// SubscribeAll returns a channel receiving every event.
func (eb *EventBus) SubscribeAll() <-chan Event {
	return eb.subscribe(func(ch chan Event) {
		eb.all = append(eb.all, ch)
	})
}

func (eb *EventBus) subscribe(register func(chan Event)) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, eb.bufferSize)
	register(ch)
	return ch
}

// Unsubscribe detaches ch from eventType. The channel is left open.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	subs := eb.subscribers[eventType]
	if i := slices.IndexFunc(subs, func(c chan Event) bool { return c == ch }); i >= 0 {
		eb.subscribers[eventType] = slices.Delete(subs, i, i+1)
	}
}

// Publish delivers event to its type's subscribers and to SubscribeAll
// channels.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}
	for _, ch := range eb.subscribers[event.Type()] {
		eb.deliver(ch, event)
	}
	for _, ch := range eb.all {
		eb.deliver(ch, event)
	}
}

func (eb *EventBus) deliver(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		eb.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to full subscriber buffers.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// PublishLog publishes a LogEvent.
func (eb *EventBus) PublishLog(level LogLevel, message, stage string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: base(EventLog),
		Level:     level,
		Message:   message,
		Stage:     stage,
		Error:     err,
	})
}

// PublishProgress publishes byte progress; Progress is 0 when total is
// unknown.
func (eb *EventBus) PublishProgress(stage string, current, total int64, message string) {
	var fraction float64
	if total > 0 {
		fraction = float64(current) / float64(total)
	}
	eb.Publish(&ProgressEvent{
		BaseEvent:    base(EventProgress),
		Stage:        stage,
		Progress:     fraction,
		BytesCurrent: current,
		BytesTotal:   total,
		Message:      message,
	})
}

// PublishSelectionChanged publishes the selection ids after a mutation.
func (eb *EventBus) PublishSelectionChanged(action string, ids []string) {
	eb.Publish(&SelectionChangedEvent{
		BaseEvent: base(EventSelectionChanged),
		IDs:       ids,
		Action:    action,
	})
}

// PublishSubmit publishes a submission state machine event.
func (eb *EventBus) PublishSubmit(eventType EventType, fileCount int, entryIDs []string, reason string, d time.Duration) {
	eb.Publish(&SubmitEvent{
		BaseEvent: base(eventType),
		FileCount: fileCount,
		EntryIDs:  entryIDs,
		Reason:    reason,
		Duration:  d,
	})
}

// PublishHistoryChanged publishes a change of the in-memory history view.
func (eb *EventBus) PublishHistoryChanged(added []string, cleared bool, total int) {
	eb.Publish(&HistoryChangedEvent{
		BaseEvent: base(EventHistoryChanged),
		Added:     added,
		Cleared:   cleared,
		Total:     total,
	})
}
