// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository is the aggregate's persistence port, implemented by the
// infrastructure layer.
type OrderRepository interface {
	// Create inserts a new order. The request_id column is unique, so a
	// concurrent duplicate create surfaces as ErrDuplicateRequest.
	Create(ctx context.Context, order *Order) error

	// Save persists a mutated aggregate and bumps its version.
	Save(ctx context.Context, order *Order) error

	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByRequestID is the outer deduplication lookup for checkout.
	FindByRequestID(ctx context.Context, requestID string) (*Order, error)
}
