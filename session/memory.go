package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mickamy/kanboard/orm"
)

type memoryEntry struct {
	userID  string
	expires time.Time
}

// Memory is an in-process Store. Sessions do not survive a restart.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemory returns a Memory store. A ttl of zero or less never expires
// sessions. Expiry is computed with orm.Now, so tests can fix the clock
// through the context.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, token string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !orm.Now(ctx).Before(e.expires) {
		delete(m.entries, token)
		return "", false, nil
	}
	return e.userID, true, nil
}

func (m *Memory) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUser
	}
	e := memoryEntry{userID: userID}
	if m.ttl > 0 {
		e.expires = orm.Now(ctx).Add(m.ttl)
	}
	token := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = e
	return token, nil
}

func (m *Memory) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
