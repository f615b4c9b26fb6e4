// internal/pkg/idempotency/idempotency.go
package idempotency

import (
	"context"
	"fmt"
	"time"

	pkgredis "github.com/edidiesky/marketplace-api-sub001/internal/pkg/redis"
)

// Store records that an event has been processed so replays under
// at-least-once delivery produce no second side effect. Acquire is the
// atomic check-and-create: the first caller gets true, every later
// caller within the TTL gets false.
type Store interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// PaymentKey derives the marker key for a payment-completed event.
func PaymentKey(orderID, transactionID string) string {
	return fmt.Sprintf("saga:pay:%s:%s", orderID, transactionID)
}

// PaymentFailureKey derives the marker key for a payment-failed event.
func PaymentFailureKey(orderID, sagaID string) string {
	return fmt.Sprintf("saga:payfail:%s:%s", orderID, sagaID)
}

// ReservationKey derives the marker key for a reservation request.
func ReservationKey(sagaID, storeID, productID string) string {
	return fmt.Sprintf("saga:reserve:%s:%s:%s", sagaID, storeID, productID)
}

// ReleaseKey derives the marker key for a release request.
func ReleaseKey(sagaID, storeID, productID string) string {
	return fmt.Sprintf("saga:release:%s:%s:%s", sagaID, storeID, productID)
}

// OnboardKey derives the marker key for a product-onboarded event.
func OnboardKey(storeID, productID string) string {
	return fmt.Sprintf("inv:onboard:%s:%s", storeID, productID)
}

const sentinel = "1"

// RedisStore implements Store with SET NX EX, the same primitive the
// lock manager uses for acquisition.
type RedisStore struct {
	client *pkgredis.Client
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.GetClient().SetNX(ctx, key, sentinel, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: acquire %s: %w", key, err)
	}
	return ok, nil
}
