// internal/service/inventory/domain/stock.go
package domain

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientStock is a business outcome, not a system fault:
	// the record had fewer available units than the reservation asked
	// for. Callers propagate it to the saga as a reservation failure
	// and never retry it blindly.
	ErrInsufficientStock = errors.New("inventory: insufficient available stock")

	// ErrReservationNotFound means a commit expected reserved units that
	// no longer exist. It signals a saga ordering bug or a late/duplicate
	// commit and is logged as an anomaly.
	ErrReservationNotFound = errors.New("inventory: reserved quantity not found for commit")

	// ErrStockNotFound means no ledger record exists for the item.
	ErrStockNotFound = errors.New("inventory: stock record not found")

	// ErrInvalidQuantity rejects non-positive quantities before any
	// datastore work happens.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
)

// StockRecord is the persisted inventory ledger entry, one per
// (product, store). All three quantities are non-negative at all times:
// OnHand is what is physically owned, Available is what is sellable right
// now, Reserved is what in-flight orders provisionally hold.
type StockRecord struct {
	ProductID         string    `json:"productId"`
	StoreID           string    `json:"storeId"`
	QuantityOnHand    int64     `json:"quantityOnHand"`
	QuantityAvailable int64     `json:"quantityAvailable"`
	QuantityReserved  int64     `json:"quantityReserved"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewStockRecord builds the ledger entry created when a product is
// onboarded. The initial quantity is both on hand and available.
func NewStockRecord(productID, storeID string, initialQuantity int64) (*StockRecord, error) {
	if productID == "" || storeID == "" {
		return nil, errors.New("inventory: stock record requires product and store identity")
	}
	if initialQuantity < 0 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	return &StockRecord{
		ProductID:         productID,
		StoreID:           storeID,
		QuantityOnHand:    initialQuantity,
		QuantityAvailable: initialQuantity,
		QuantityReserved:  0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
