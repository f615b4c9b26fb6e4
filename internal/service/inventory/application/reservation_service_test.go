package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/dislock"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// memoryStockRepository mirrors the conditional update semantics of the
// SQL repository: each mutation checks its predicate and applies the
// change under one mutex hold.
type memoryStockRepository struct {
	mu      sync.Mutex
	records map[string]*domain.StockRecord
}

func newMemoryStockRepository() *memoryStockRepository {
	return &memoryStockRepository{records: make(map[string]*domain.StockRecord)}
}

func stockKey(productID, storeID string) string {
	return storeID + "/" + productID
}

func (r *memoryStockRepository) Create(ctx context.Context, record *domain.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stockKey(record.ProductID, record.StoreID)
	if _, ok := r.records[key]; ok {
		return nil
	}
	clone := *record
	r.records[key] = &clone
	return nil
}

func (r *memoryStockRepository) Find(ctx context.Context, productID, storeID string) (*domain.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[stockKey(productID, storeID)]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *memoryStockRepository) Reserve(ctx context.Context, productID, storeID string, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[stockKey(productID, storeID)]
	if !ok || record.QuantityAvailable < quantity {
		return domain.ErrInsufficientStock
	}
	record.QuantityAvailable -= quantity
	record.QuantityReserved += quantity
	return nil
}

func (r *memoryStockRepository) Commit(ctx context.Context, productID, storeID string, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[stockKey(productID, storeID)]
	if !ok || record.QuantityReserved < quantity {
		return domain.ErrReservationNotFound
	}
	record.QuantityReserved -= quantity
	record.QuantityOnHand -= quantity
	return nil
}

func (r *memoryStockRepository) Release(ctx context.Context, productID, storeID string, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[stockKey(productID, storeID)]
	if !ok {
		return nil
	}
	freed := quantity
	if record.QuantityReserved < freed {
		freed = record.QuantityReserved
	}
	record.QuantityReserved -= freed
	record.QuantityAvailable += freed
	return nil
}

// memoryStockCache records invalidations; faultInjected makes every call
// fail so degradation paths can be exercised.
type memoryStockCache struct {
	mu            sync.Mutex
	entries       map[string]*domain.StockRecord
	invalidations int
	faultInjected bool
}

func newMemoryStockCache() *memoryStockCache {
	return &memoryStockCache{entries: make(map[string]*domain.StockRecord)}
}

func (c *memoryStockCache) Get(ctx context.Context, productID, storeID string) (*domain.StockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faultInjected {
		return nil, errors.New("cache unavailable")
	}
	return c.entries[stockKey(productID, storeID)], nil
}

func (c *memoryStockCache) Set(ctx context.Context, record *domain.StockRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faultInjected {
		return errors.New("cache unavailable")
	}
	c.entries[stockKey(record.ProductID, record.StoreID)] = record
	return nil
}

func (c *memoryStockCache) Invalidate(ctx context.Context, productID, storeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	if c.faultInjected {
		return errors.New("cache unavailable")
	}
	delete(c.entries, stockKey(productID, storeID))
	return nil
}

func newTestService(t *testing.T) (*ReservationService, *memoryStockRepository, *memoryStockCache) {
	t.Helper()
	stocks := newMemoryStockRepository()
	cache := newMemoryStockCache()
	svc := NewReservationService(stocks, dislock.NewMemoryManager(), cache, otel.Tracer("test"), time.Minute)
	return svc, stocks, cache
}

func seedStock(t *testing.T, stocks *memoryStockRepository, productID, storeID string, quantity int64) {
	t.Helper()
	record, err := domain.NewStockRecord(productID, storeID, quantity)
	require.NoError(t, err)
	require.NoError(t, stocks.Create(context.Background(), record))
}

func TestReservationService_ReserveCommitConsumesStock(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 100)

	require.NoError(t, svc.Reserve(ctx, "p1", "s1", 10))

	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), record.QuantityAvailable)
	assert.Equal(t, int64(10), record.QuantityReserved)
	assert.Equal(t, int64(100), record.QuantityOnHand)

	require.NoError(t, svc.Commit(ctx, "p1", "s1", 10))

	record, err = stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), record.QuantityAvailable)
	assert.Equal(t, int64(0), record.QuantityReserved)
	assert.Equal(t, int64(90), record.QuantityOnHand)
}

func TestReservationService_ReserveRejectsOversell(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 5)

	err := svc.Reserve(ctx, "p1", "s1", 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The failed attempt must not have touched the ledger.
	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), record.QuantityAvailable)
	assert.Equal(t, int64(0), record.QuantityReserved)
}

func TestReservationService_ReleaseRestoresAvailability(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 100)

	require.NoError(t, svc.Reserve(ctx, "p1", "s1", 10))
	require.NoError(t, svc.Release(ctx, "p1", "s1", 10))

	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), record.QuantityAvailable)
	assert.Equal(t, int64(0), record.QuantityReserved)
	assert.Equal(t, int64(100), record.QuantityOnHand)
}

func TestReservationService_ReleaseIsRepeatSafe(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 10)

	require.NoError(t, svc.Reserve(ctx, "p1", "s1", 4))

	// A redelivered release clamps at zero reserved instead of
	// inflating availability past on-hand.
	require.NoError(t, svc.Release(ctx, "p1", "s1", 4))
	require.NoError(t, svc.Release(ctx, "p1", "s1", 4))

	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), record.QuantityAvailable)
	assert.Equal(t, int64(0), record.QuantityReserved)
	assert.Equal(t, int64(10), record.QuantityOnHand)
}

func TestReservationService_CommitWithoutReservationFails(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 10)

	err := svc.Commit(ctx, "p1", "s1", 1)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestReservationService_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 10)

	assert.ErrorIs(t, svc.Reserve(ctx, "p1", "s1", 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.Release(ctx, "p1", "s1", -2), domain.ErrInvalidQuantity)
}

func TestReservationService_ConcurrentReservesNeverOversell(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 50)

	const workers = 100
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Contended acquires surface as ErrLockBusy; in production
			// the consumer retry loop absorbs them.
			err := svc.Reserve(ctx, "p1", "s1", 1)
			for errors.Is(err, dislock.ErrLockBusy) {
				err = svc.Reserve(ctx, "p1", "s1", 1)
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, 50, rejected)

	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.QuantityAvailable)
	assert.Equal(t, int64(50), record.QuantityReserved)
}

func TestReservationService_MutationInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc, stocks, cache := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 10)

	require.NoError(t, svc.Reserve(ctx, "p1", "s1", 1))
	assert.Equal(t, 1, cache.invalidations)
}

func TestReservationService_CacheFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	svc, stocks, cache := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 10)
	cache.faultInjected = true

	require.NoError(t, svc.Reserve(ctx, "p1", "s1", 1))

	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), record.QuantityAvailable)
}

func TestReservationService_GetStockFallsBackOnCacheFault(t *testing.T) {
	ctx := context.Background()
	svc, stocks, cache := newTestService(t)
	seedStock(t, stocks, "p1", "s1", 10)
	cache.faultInjected = true

	record, err := svc.GetStock(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), record.QuantityAvailable)
}

func TestReservationService_OnboardIsRepeatSafe(t *testing.T) {
	ctx := context.Background()
	svc, stocks, _ := newTestService(t)

	event := &domain.ProductOnboarded{ProductID: "p1", StoreID: "s1", InitialQuantity: 25}
	require.NoError(t, svc.Onboard(ctx, event))

	// Redelivery must not reset a ledger that has since moved.
	require.NoError(t, svc.Reserve(ctx, "p1", "s1", 5))
	require.NoError(t, svc.Onboard(ctx, event))

	record, err := stocks.Find(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), record.QuantityAvailable)
	assert.Equal(t, int64(5), record.QuantityReserved)
}
