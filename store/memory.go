package store

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

type inMemory struct {
	mu         sync.RWMutex
	storage    map[string][]*Entry
	maxEntries int
}

// NewMemoryStore returns a HistoryStore that lives in the process memory.
func NewMemoryStore() HistoryStore {
	return &inMemory{maxEntries: DefaultMaxEntries}
}

func (m *inMemory) Add(_ context.Context, sessionID string, entry *Entry) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	e := prepare(sessionID, entry)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]*Entry)
	}
	list := append(m.storage[sessionID], e)
	if len(list) > m.maxEntries {
		list = list[len(list)-m.maxEntries:]
	}
	m.storage[sessionID] = list
	return nil
}

func (m *inMemory) List(_ context.Context, sessionID string) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.storage[sessionID]
	res := make([]*Entry, 0, len(list))
	for _, e := range list {
		res = append(res, prepare(sessionID, e))
	}
	return res, nil
}

func (m *inMemory) Reset(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, sessionID)
	}
	return nil
}

func (m *inMemory) ListSessions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.storage))
	for id := range m.storage {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
