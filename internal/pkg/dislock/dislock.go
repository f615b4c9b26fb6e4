// internal/pkg/dislock/dislock.go
package dislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/edidiesky/marketplace-api-sub001/internal/pkg/redis"
)

var (
	// ErrLockBusy means another holder currently owns the lock. Callers
	// surface this as a retryable contention error, never as a crash.
	ErrLockBusy = errors.New("dislock: lock is held by another owner")

	// ErrNotOwner means a release was attempted with a token that does
	// not match the current holder. The lock is left untouched.
	ErrNotOwner = errors.New("dislock: release token does not match lock owner")
)

// Manager is a lease-based mutual exclusion primitive. Acquire fails fast
// when the lock is held; the TTL guarantees eventual release if the
// holder dies mid-critical-section.
type Manager interface {
	// Acquire takes the lock and returns an owner token that must be
	// presented on Release.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Release frees the lock only when token matches the current owner.
	Release(ctx context.Context, key, token string) error
}

// ItemKey builds the lock key for a (store, product) pair.
func ItemKey(storeID, productID string) string {
	return fmt.Sprintf("lock:inv:%s:%s", storeID, productID)
}

const releaseScriptName = "dislock_release"

// Compare-and-delete: only the owner that set the value may delete the
// key. An unconditional DEL could destroy a lock re-acquired by someone
// else after our TTL expired.
var releaseScript = `
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
else
    return 0
end
`

// RedisManager implements Manager with SET NX PX plus a Lua
// compare-and-delete for release.
type RedisManager struct {
	client *pkgredis.Client
}

func NewRedisManager(client *pkgredis.Client) (*RedisManager, error) {
	if err := client.LoadScriptFromContent(releaseScriptName, releaseScript); err != nil {
		return nil, fmt.Errorf("failed to load lock release script: %w", err)
	}
	return &RedisManager{client: client}, nil
}

func (m *RedisManager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := m.client.GetClient().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("dislock: acquire %s: %w", key, err)
	}
	if !ok {
		return "", ErrLockBusy
	}
	return token, nil
}

func (m *RedisManager) Release(ctx context.Context, key, token string) error {
	result, err := m.client.RunScript(ctx, releaseScriptName, []string{key}, token)
	if err != nil {
		return fmt.Errorf("dislock: release %s: %w", key, err)
	}
	deleted, ok := result.(int64)
	if !ok {
		return fmt.Errorf("dislock: unexpected result type from release script: %T", result)
	}
	if deleted == 0 {
		return ErrNotOwner
	}
	return nil
}
