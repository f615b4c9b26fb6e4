package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FirstAcquireWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Acquire(ctx, "saga:pay:o1:tx1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Acquire(ctx, "saga:pay:o1:tx1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "duplicate must be suppressed")

	// A different transaction for the same order is a fresh event.
	ok, err = s.Acquire(ctx, "saga:pay:o1:tx2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_MarkerExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now()
	s.now = func() time.Time { return now }

	ok, err := s.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Hour)
	ok, err = s.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired marker no longer suppresses")
}

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "saga:pay:o1:tx1", PaymentKey("o1", "tx1"))
	assert.Equal(t, "saga:payfail:o1:s1", PaymentFailureKey("o1", "s1"))
	assert.Equal(t, "saga:reserve:s1:st1:p1", ReservationKey("s1", "st1", "p1"))
	assert.Equal(t, "saga:release:s1:st1:p1", ReleaseKey("s1", "st1", "p1"))
	assert.Equal(t, "inv:onboard:st1:p1", OnboardKey("st1", "p1"))
}
