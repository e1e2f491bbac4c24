package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/logging"
	"github.com/rescale/imghub/internal/storage"
	"github.com/rescale/imghub/internal/util/ids"
)

// ErrDuplicateID is returned when the id generator keeps colliding with
// existing entries.
var ErrDuplicateID = errors.New("could not allocate a unique history id")

const maxIDAttempts = 8

// Store is the persisted history collection.
//
// Every mutation is a read-modify-write of the whole serialized array stored
// under one key. The mutex serializes writers within a process only; two
// processes sharing a medium can lose updates (last writer wins).
type Store struct {
	mu         sync.Mutex
	kv         storage.KV
	key        string
	maxEntries int
	now        func() time.Time
	newID      ids.Generator
	logger     *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUIDv7 generator.
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMaxEntries caps the collection; the oldest entries are trimmed on
// append. 0 means unlimited.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

// WithLogger sets the logger used for swallowed read and clear errors.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store over kv.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		key:    constants.HistoryKey,
		now:    time.Now,
		newID:  ids.Default,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted entries, newest first. Missing, unreadable or
// malformed data yields an empty slice; Load never fails.
func (s *Store) Load() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []Entry {
	data, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("Failed to read history, treating as empty")
		return []Entry{}
	}
	if !ok || len(data) == 0 {
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("History data is malformed, treating as empty")
		return []Entry{}
	}
	if entries == nil {
		return []Entry{}
	}
	return entries
}

// Append creates one entry per record, prepends them in input order and
// persists the whole collection. It returns only the new entries. Write
// failures are returned to the caller.
func (s *Store) Append(records []Record) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.load()
	if len(records) == 0 {
		return []Entry{}, nil
	}

	used := make(map[string]bool, len(existing)+len(records))
	for _, e := range existing {
		used[e.ID] = true
	}

	created := make([]Entry, 0, len(records))
	for _, r := range records {
		id, err := s.allocateID(used)
		if err != nil {
			return nil, err
		}
		created = append(created, Entry{
			ID:        id,
			Timestamp: s.now(),
			Payload:   cloneRecord(r),
		})
	}

	combined := make([]Entry, 0, len(created)+len(existing))
	combined = append(combined, created...)
	combined = append(combined, existing...)
	if s.maxEntries > 0 && len(combined) > s.maxEntries {
		combined = combined[:s.maxEntries]
	}

	data, err := json.Marshal(combined)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Set(s.key, data); err != nil {
		return nil, fmt.Errorf("failed to persist history: %w", err)
	}

	out := make([]Entry, len(created))
	for i := range created {
		out[i] = created[i].Clone()
	}
	return out, nil
}

func (s *Store) allocateID(used map[string]bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if id != "" && !used[id] {
			used[id] = true
			return id, nil
		}
	}
	return "", ErrDuplicateID
}

// Clear removes the persisted collection. Errors are logged and swallowed;
// clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(s.key); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("Failed to clear history")
	}
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, bool) {
	for _, e := range s.Load() {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of persisted entries.
func (s *Store) Len() int {
	return len(s.Load())
}
