// internal/service/inventory/domain/repository.go
package domain

import "context"

// StockRepository is the ledger's persistence port. Reserve, Commit and
// Release are each a single atomic conditional update: the predicate and
// the mutation execute as one statement inside a short-lived transaction,
// so the ledger itself rejects oversell and stale commits regardless of
// what the advisory lock layer does.
type StockRepository interface {
	// Create inserts the onboarding record. Inserting an already
	// onboarded (product, store) pair is not an error.
	Create(ctx context.Context, record *StockRecord) error

	// Find loads the current ledger entry.
	Find(ctx context.Context, productID, storeID string) (*StockRecord, error)

	// Reserve moves quantity from available to reserved, only when
	// quantity_available >= quantity. Returns ErrInsufficientStock when
	// no row matches.
	Reserve(ctx context.Context, productID, storeID string, quantity int64) error

	// Commit consumes reserved units permanently: reserved and on-hand
	// both drop by quantity, only when quantity_reserved >= quantity.
	// Returns ErrReservationNotFound when no row matches.
	Commit(ctx context.Context, productID, storeID string, quantity int64) error

	// Release returns reserved units to the available pool. It clamps at
	// zero reserved, so duplicate releases are harmless no-ops.
	Release(ctx context.Context, productID, storeID string, quantity int64) error
}
