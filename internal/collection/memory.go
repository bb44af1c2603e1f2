package collection

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps collections in process. Used by tests and the default server
// storage.
type Memory struct {
	mu    sync.RWMutex
	next  int64
	items map[string]map[int64]map[string]any
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[int64]map[string]any)}
}

func (m *Memory) List(_ context.Context, coll string, after Cursor, limit int) (*Page, error) {
	limit = clampLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.items[coll]))
	for id := range m.items[coll] {
		if id > after.After {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	items := make([]map[string]any, 0, len(ids))
	var last int64
	for _, id := range ids {
		items = append(items, withID(m.items[coll][id], id))
		last = id
	}
	return finishPage(items, last, limit), nil
}

func (m *Memory) Get(_ context.Context, coll string, id int64) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.items[coll][id]
	if !ok {
		return nil, ErrNotFound
	}
	return withID(p, id), nil
}

func (m *Memory) Create(_ context.Context, coll string, attrs map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	id := m.next
	if m.items[coll] == nil {
		m.items[coll] = make(map[int64]map[string]any)
	}
	m.items[coll][id] = payload(attrs)
	return withID(m.items[coll][id], id), nil
}

func (m *Memory) Replace(_ context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[coll][id]; !ok {
		return nil, ErrNotFound
	}
	m.items[coll][id] = payload(attrs)
	return withID(m.items[coll][id], id), nil
}

func (m *Memory) Merge(_ context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[coll][id]
	if !ok {
		return nil, ErrNotFound
	}
	merged := payload(current)
	for k, v := range payload(attrs) {
		merged[k] = v
	}
	m.items[coll][id] = merged
	return withID(merged, id), nil
}

func (m *Memory) Delete(_ context.Context, coll string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[coll][id]; !ok {
		return ErrNotFound
	}
	delete(m.items[coll], id)
	return nil
}

func (m *Memory) Close() error { return nil }
