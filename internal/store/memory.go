package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"critvue-backend/internal/wizard"
)

// MemoryStore is a process-local session store. Used when no redis is
// configured, and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]entry
	locks    map[uuid.UUID]time.Time
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]entry),
		locks:    make(map[uuid.UUID]time.Time),
	}
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*wizard.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}

	var session wizard.Session
	if err := json.Unmarshal(e.data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (m *MemoryStore) Save(ctx context.Context, session *wizard.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = entry{data: b, expiresAt: time.Now().Add(SessionTTL)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) TryLock(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expires, held := m.locks[id]; held && time.Now().Before(expires) {
		return false, nil
	}
	m.locks[id] = time.Now().Add(LockTTL)
	return true, nil
}

func (m *MemoryStore) Unlock(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
	return nil
}
