// internal/service/inventory/domain/events.go
package domain

import "time"

// ReservationRequested asks the inventory side to place a provisional
// hold for one order line.
type ReservationRequested struct {
	ProductID string `json:"productId"`
	StoreID   string `json:"storeId"`
	Quantity  int64  `json:"quantity"`
	SagaID    string `json:"sagaId"`
	OrderID   string `json:"orderId,omitempty"`
}

// ReservationCompleted reports a successful hold back to the order saga.
type ReservationCompleted struct {
	ProductID  string    `json:"productId"`
	StoreID    string    `json:"storeId"`
	Quantity   int64     `json:"quantity"`
	SagaID     string    `json:"sagaId"`
	ReservedAt time.Time `json:"reservedAt"`
}

// ReservationFailed reports that the hold could not be placed, most
// commonly because of insufficient stock.
type ReservationFailed struct {
	OrderID   string `json:"orderId,omitempty"`
	ProductID string `json:"productId"`
	StoreID   string `json:"storeId"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
	SagaID    string `json:"sagaId"`
}

// ReleaseRequested is the compensating action: return reserved units to
// the available pool. Safe to deliver more than once.
type ReleaseRequested struct {
	ProductID string `json:"productId"`
	StoreID   string `json:"storeId"`
	Quantity  int64  `json:"quantity"`
	SagaID    string `json:"sagaId"`
}

// ProductOnboarded announces a new sellable product; the ledger entry is
// created from it.
type ProductOnboarded struct {
	ProductID       string `json:"productId"`
	StoreID         string `json:"storeId"`
	InitialQuantity int64  `json:"initialQuantity"`
}
