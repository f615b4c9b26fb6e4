// internal/pkg/dislock/memory.go
package dislock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryManager is an in-process Manager with the same lease semantics as
// the Redis implementation. Used by tests and single-node development.
type MemoryManager struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (m *MemoryManager) Acquire(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.leases[key]; ok && m.now().Before(l.expiresAt) {
		return "", ErrLockBusy
	}
	token := uuid.New().String()
	m.leases[key] = lease{token: token, expiresAt: m.now().Add(ttl)}
	return token, nil
}

func (m *MemoryManager) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leases[key]
	if !ok || m.now().After(l.expiresAt) || l.token != token {
		return ErrNotOwner
	}
	delete(m.leases, key)
	return nil
}
