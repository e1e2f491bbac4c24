package storage

import (
	"errors"
	"sync"
)

// MemoryKV is a process-local KV.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the value for key.
func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (m *MemoryKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ErrInjected is the default error returned by FailingKV.
var ErrInjected = errors.New("storage failure injected")

// FailingKV wraps a KV and fails selected operations.
type FailingKV struct {
	KV

	mu         sync.Mutex
	FailGet    bool
	FailSet    bool
	FailRemove bool
	Err        error
}

// NewFailingKV wraps inner. With no flags set it behaves like inner.
func NewFailingKV(inner KV) *FailingKV {
	return &FailingKV{KV: inner}
}

func (f *FailingKV) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// SetFailures toggles failure modes.
func (f *FailingKV) SetFailures(get, set, remove bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailGet, f.FailSet, f.FailRemove = get, set, remove
}

// Get fails when FailGet is set.
func (f *FailingKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.FailGet
	f.mu.Unlock()
	if fail {
		return nil, false, f.err()
	}
	return f.KV.Get(key)
}

// Set fails when FailSet is set.
func (f *FailingKV) Set(key string, value []byte) error {
	f.mu.Lock()
	fail := f.FailSet
	f.mu.Unlock()
	if fail {
		return f.err()
	}
	return f.KV.Set(key, value)
}

// Remove fails when FailRemove is set.
func (f *FailingKV) Remove(key string) error {
	f.mu.Lock()
	fail := f.FailRemove
	f.mu.Unlock()
	if fail {
		return f.err()
	}
	return f.KV.Remove(key)
}
