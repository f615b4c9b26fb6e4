// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition rejects a status change from a terminal state
	// or any transition outside the allowed graph.
	ErrInvalidTransition = errors.New("order: invalid status transition")

	// ErrOrderNotFound is returned by repositories when no order matches.
	ErrOrderNotFound = errors.New("order: not found")

	// ErrDuplicateRequest means an order with the same request_id already
	// exists; the caller re-reads and returns it unchanged.
	ErrDuplicateRequest = errors.New("order: duplicate request id")

	// ErrInvalidCart rejects a checkout snapshot that cannot become an
	// order: missing identity fields, empty cart, non-positive line.
	ErrInvalidCart = errors.New("order: invalid cart")
)

// CartItem is one immutable line of the checkout snapshot.
type CartItem struct {
	ProductID string  `json:"productId"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the order aggregate. RequestID is the caller-supplied
// idempotency key: checkout retries with the same RequestID map to the
// same order. Version increments on every persisted mutation and drives
// cache invalidation, not conflict rejection.
type Order struct {
	ID        string
	RequestID string
	CartID    string
	UserID    string
	StoreID   string
	Status    Status
	Version   int64
	CartItems []CartItem
	SagaID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder creates a PENDING order from a checkout snapshot.
func NewOrder(id, requestID, cartID, userID, storeID, sagaID string, items []CartItem) (*Order, error) {
	if id == "" || requestID == "" || cartID == "" || userID == "" || storeID == "" {
		return nil, fmt.Errorf("%w: missing required identity fields", ErrInvalidCart)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no cart items", ErrInvalidCart)
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: invalid cart line %q", ErrInvalidCart, item.ProductID)
		}
	}
	now := time.Now().UTC()
	return &Order{
		ID:        id,
		RequestID: requestID,
		CartID:    cartID,
		UserID:    userID,
		StoreID:   storeID,
		Status:    StatusPending,
		Version:   1,
		CartItems: items,
		SagaID:    sagaID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete moves the order to COMPLETED after payment and stock commit.
func (o *Order) Complete() error {
	return o.transition(StatusCompleted)
}

// Fail marks the order FAILED after a payment failure.
func (o *Order) Fail() error {
	return o.transition(StatusFailed)
}

// Cancel marks the order CANCELLED (user action or checkout timeout).
func (o *Order) Cancel() error {
	return o.transition(StatusCancelled)
}

func (o *Order) transition(to Status) error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}
