// internal/service/inventory/application/reservation_service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/dislock"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/metrics"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/port"
)

// ReservationService orchestrates the three ledger operations: acquire
// the per-item lock, run the atomic conditional update, invalidate the
// cache, release the lock. The lock serializes logically concurrent saga
// branches to cut wasted contention; the conditional update is what
// actually guarantees correctness, so a lock lease outliving its TTL
// cannot corrupt the ledger.
type ReservationService struct {
	stocks  domain.StockRepository
	locks   dislock.Manager
	cache   port.StockCache
	tracer  trace.Tracer
	lockTTL time.Duration
}

func NewReservationService(stocks domain.StockRepository, locks dislock.Manager, cache port.StockCache, tracer trace.Tracer, lockTTL time.Duration) *ReservationService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &ReservationService{
		stocks:  stocks,
		locks:   locks,
		cache:   cache,
		tracer:  tracer,
		lockTTL: lockTTL,
	}
}

// Reserve places a provisional hold: available -= qty, reserved += qty.
func (s *ReservationService) Reserve(ctx context.Context, productID, storeID string, quantity int64) error {
	return s.mutate(ctx, "reserve", productID, storeID, quantity, s.stocks.Reserve)
}

// Commit permanently consumes a previous hold: reserved -= qty,
// on-hand -= qty.
func (s *ReservationService) Commit(ctx context.Context, productID, storeID string, quantity int64) error {
	return s.mutate(ctx, "commit", productID, storeID, quantity, s.stocks.Commit)
}

// Release is the compensating action and must stay safe to repeat.
func (s *ReservationService) Release(ctx context.Context, productID, storeID string, quantity int64) error {
	return s.mutate(ctx, "release", productID, storeID, quantity, s.stocks.Release)
}

type ledgerOp func(ctx context.Context, productID, storeID string, quantity int64) error

func (s *ReservationService) mutate(ctx context.Context, op string, productID, storeID string, quantity int64, apply ledgerOp) error {
	ctx, span := s.tracer.Start(ctx, "inventory."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("store.id", storeID),
		attribute.Int64("quantity", quantity),
	)

	if quantity <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return domain.ErrInvalidQuantity
	}

	lockKey := dislock.ItemKey(storeID, productID)
	token, err := s.locks.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, dislock.ErrLockBusy) {
			metrics.LockContention.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock acquisition failed")
		return err
	}
	defer func() {
		// Best effort: the lease TTL is the safety net if this fails.
		if err := s.locks.Release(ctx, lockKey, token); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("lock", lockKey).Msg("lock release failed, relying on TTL expiry")
		}
	}()

	if err := apply(ctx, productID, storeID, quantity); err != nil {
		metrics.ReservationOps.WithLabelValues(op, outcomeLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}
	metrics.ReservationOps.WithLabelValues(op, "ok").Inc()

	// Stale cache is preferable to a failed saga step.
	if err := s.cache.Invalidate(ctx, productID, storeID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("product_id", productID).
			Str("store_id", storeID).
			Msg("stock cache invalidation failed, continuing")
	}

	return nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrReservationNotFound):
		return "reservation_not_found"
	default:
		return "error"
	}
}

// Onboard creates the ledger entry for a newly sellable product.
func (s *ReservationService) Onboard(ctx context.Context, event *domain.ProductOnboarded) error {
	ctx, span := s.tracer.Start(ctx, "inventory.onboard")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", event.ProductID),
		attribute.String("store.id", event.StoreID),
	)

	record, err := domain.NewStockRecord(event.ProductID, event.StoreID, event.InitialQuantity)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return s.stocks.Create(ctx, record)
}

// GetStock serves reads through the cache, falling back to the ledger and
// refilling on a miss. Cache faults degrade to the authoritative store.
func (s *ReservationService) GetStock(ctx context.Context, productID, storeID string) (*domain.StockRecord, error) {
	if record, err := s.cache.Get(ctx, productID, storeID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("stock cache read failed, falling back to ledger")
	} else if record != nil {
		return record, nil
	}

	record, err := s.stocks.Find(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, record); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("stock cache fill failed, continuing")
	}
	return record, nil
}
