package session

import (
	"context"
	"sync"

	"github.com/MrEthical07/goAuthClient/identity"
)

// MemoryStore keeps the session in process memory. Loaded sessions are
// copies; mutating them does not affect the store.
type MemoryStore struct {
	mu   sync.RWMutex
	sess *identity.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*identity.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, s *identity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.sess = nil
		return nil
	}
	cp := *s
	m.sess = &cp
	return nil
}

func (m *MemoryStore) Remove(context.Context) error {
	m.mu.Lock()
	m.sess = nil
	m.mu.Unlock()
	return nil
}
