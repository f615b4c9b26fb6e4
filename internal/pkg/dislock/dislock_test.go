package dislock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManager_AcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryManager()

	token, err := m.Acquire(ctx, "lock:inv:s1:p1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = m.Acquire(ctx, "lock:inv:s1:p1", time.Minute)
	assert.ErrorIs(t, err, ErrLockBusy)

	// A different key is unaffected.
	_, err = m.Acquire(ctx, "lock:inv:s1:p2", time.Minute)
	assert.NoError(t, err)
}

func TestMemoryManager_ReleaseRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryManager()

	token, err := m.Acquire(ctx, "lock:inv:s1:p1", time.Minute)
	require.NoError(t, err)

	// A stranger's token must not free the lock.
	err = m.Release(ctx, "lock:inv:s1:p1", "not-the-owner")
	assert.ErrorIs(t, err, ErrNotOwner)

	// The lock is still held by the true owner.
	_, err = m.Acquire(ctx, "lock:inv:s1:p1", time.Minute)
	assert.ErrorIs(t, err, ErrLockBusy)

	require.NoError(t, m.Release(ctx, "lock:inv:s1:p1", token))

	// Released locks are acquirable again.
	_, err = m.Acquire(ctx, "lock:inv:s1:p1", time.Minute)
	assert.NoError(t, err)
}

func TestMemoryManager_LeaseExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryManager()

	now := time.Now()
	m.now = func() time.Time { return now }

	token, err := m.Acquire(ctx, "lock:inv:s1:p1", 10*time.Second)
	require.NoError(t, err)

	// Before expiry the lock is busy.
	_, err = m.Acquire(ctx, "lock:inv:s1:p1", 10*time.Second)
	require.ErrorIs(t, err, ErrLockBusy)

	// After the lease runs out anyone may take it.
	now = now.Add(11 * time.Second)
	second, err := m.Acquire(ctx, "lock:inv:s1:p1", 10*time.Second)
	require.NoError(t, err)

	// The original owner's token is now worthless.
	assert.ErrorIs(t, m.Release(ctx, "lock:inv:s1:p1", token), ErrNotOwner)
	assert.NoError(t, m.Release(ctx, "lock:inv:s1:p1", second))
}

func TestItemKey(t *testing.T) {
	assert.Equal(t, "lock:inv:store-7:prod-42", ItemKey("store-7", "prod-42"))
}
