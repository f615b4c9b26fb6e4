// internal/service/inventory/port/ports.go
package port

import (
	"context"

	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// StockCache is the read-side cache over the ledger. Mutations
// invalidate; a cache failure never fails a saga step.
type StockCache interface {
	Get(ctx context.Context, productID, storeID string) (*domain.StockRecord, error)
	Set(ctx context.Context, record *domain.StockRecord) error
	Invalidate(ctx context.Context, productID, storeID string) error
}

// ReservationNotifier publishes reservation outcomes back onto the bus
// for the order saga to consume.
type ReservationNotifier interface {
	ReservationCompleted(ctx context.Context, event *domain.ReservationCompleted) error
	ReservationFailed(ctx context.Context, event *domain.ReservationFailed) error
}
