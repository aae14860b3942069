package profile

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store], used by the CLI's memory driver and
// by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Profile
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]Profile),
		now:  time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) Insert(_ context.Context, p Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; ok {
		return ErrDuplicate
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	m.rows[p.ID] = p
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, p Profile, fields ...Field) error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[p.ID]
	if !ok {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = m.now()
		}
		m.rows[p.ID] = p
		return nil
	}
	cur.assign(p, fieldsOrAll(fields))
	m.rows[p.ID] = cur
	return nil
}

// Len reports the number of stored profiles.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
