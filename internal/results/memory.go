package results

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (m *MemoryStore) Put(_ context.Context, e *Entry) error {
	if e == nil || e.Key == "" {
		return fmt.Errorf("results: entry key is required")
	}
	cp := cloneEntry(e)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.Key]; !ok {
		m.order = append(m.order, e.Key)
	}
	m.entries[e.Key] = cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return cloneEntry(e), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Entry, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, cloneEntry(m.entries[k]))
	}
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	m.order = nil
	return nil
}

func (m *MemoryStore) Close() error { return nil }
