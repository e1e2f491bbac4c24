package selection

import (
	"sync"

	"github.com/rescale/imghub/internal/events"
	"github.com/rescale/imghub/internal/logging"
	"github.com/rescale/imghub/internal/util/ids"
)

// Entry is one selected image.
type Entry struct {
	Blob    Blob
	ID      string
	Preview string
}

// Buffer is the ordered set of images awaiting submission.
// Every mutation publishes EventSelectionChanged when an event bus is set.
// Thread-safe for concurrent access.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	previews PreviewAllocator
	newID    ids.Generator
	eventBus *events.EventBus
	logger   *logging.Logger
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithPreviews sets the preview allocator (default: RegistryPreviews).
func WithPreviews(p PreviewAllocator) Option {
	return func(b *Buffer) { b.previews = p }
}

// WithIDGenerator overrides the entry id generator.
func WithIDGenerator(gen ids.Generator) Option {
	return func(b *Buffer) { b.newID = gen }
}

// WithEventBus publishes selection changes on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(b *Buffer) { b.eventBus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Buffer) { b.logger = l }
}

// NewBuffer creates an empty Buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		entries:  make([]Entry, 0),
		previews: NewRegistryPreviews(),
		newID:    ids.Default,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends every image blob in order and returns the new entries.
// Non-image blobs are skipped and returned separately; existing entries are
// left untouched.
func (b *Buffer) Add(blobs ...Blob) (added []Entry, skipped []Blob) {
	for _, blob := range blobs {
		if blob == nil {
			continue
		}
		if !IsImage(blob.MediaType()) {
			b.logger.Debug().Str("file", blob.Name()).Str("type", blob.MediaType()).Msg("Skipping non-image file")
			skipped = append(skipped, blob)
			continue
		}

		preview, err := b.previews.Allocate(blob)
		if err != nil {
			b.logger.Warn().Err(err).Str("file", blob.Name()).Msg("Failed to allocate preview")
			preview = ""
		}
		added = append(added, Entry{Blob: blob, ID: b.newID(), Preview: preview})
	}

	if len(added) == 0 {
		return added, skipped
	}

	b.mu.Lock()
	b.entries = append(b.entries, added...)
	b.mu.Unlock()

	b.publish("add", entryIDs(added))
	return added, skipped
}

// Remove drops the entry with id and releases its preview. It reports
// whether an entry was removed; an unknown id is a no-op.
func (b *Buffer) Remove(id string) bool {
	return b.Discard(id) == 1
}

// Discard drops every entry whose id is listed and releases their previews.
// Unknown ids are ignored and the remaining entries keep their order. It
// returns the number of entries removed.
func (b *Buffer) Discard(dropIDs ...string) int {
	drop := make(map[string]struct{}, len(dropIDs))
	for _, id := range dropIDs {
		drop[id] = struct{}{}
	}

	b.mu.Lock()
	var removed []Entry
	kept := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if _, ok := drop[e.ID]; ok {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		b.mu.Unlock()
		return 0
	}
	b.entries = kept
	b.mu.Unlock()

	b.release(removed)
	b.publish("remove", entryIDs(removed))
	return len(removed)
}

// Clear releases every preview and empties the buffer. It returns the
// number of entries removed.
func (b *Buffer) Clear() int {
	b.mu.Lock()
	removed := b.entries
	b.entries = make([]Entry, 0)
	b.mu.Unlock()

	b.release(removed)
	b.publish("clear", entryIDs(removed))
	return len(removed)
}

// release is the only place preview handles are given back.
func (b *Buffer) release(entries []Entry) {
	for _, e := range entries {
		if e.Preview == "" {
			continue
		}
		if err := b.previews.Release(e.Preview); err != nil {
			b.logger.Warn().Err(err).Str("id", e.ID).Msg("Failed to release preview")
		}
	}
}

// Snapshot returns a copy of the current entries in insertion order.
func (b *Buffer) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Entry, len(b.entries))
	copy(result, b.entries)
	return result
}

// Blobs returns the selected blobs in insertion order.
func (b *Buffer) Blobs() []Blob {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Blob, len(b.entries))
	for i, e := range b.entries {
		result[i] = e.Blob
	}
	return result
}

// Len returns the number of selected entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Buffer) publish(action string, changed []string) {
	if b.eventBus != nil {
		b.eventBus.PublishSelectionChanged(action, changed)
	}
}

func entryIDs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
