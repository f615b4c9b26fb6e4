// internal/service/order/port/ports.go
package port

import (
	"context"

	invdomain "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

// StockCommitter consumes previously reserved stock when payment lands.
// The order service depends on this port, not on the ledger directly.
type StockCommitter interface {
	Commit(ctx context.Context, productID, storeID string, quantity int64) error
}

// ReleasePublisher emits compensating release requests onto the bus.
type ReleasePublisher interface {
	RequestRelease(ctx context.Context, event *invdomain.ReleaseRequested) error
}

// ReservationRequester asks the inventory side to place holds for a
// fresh checkout.
type ReservationRequester interface {
	RequestReservation(ctx context.Context, event *invdomain.ReservationRequested) error
}

// OrderEventsPublisher emits order lifecycle events.
type OrderEventsPublisher interface {
	OrderCompleted(ctx context.Context, event *domain.OrderCompleted) error
}
