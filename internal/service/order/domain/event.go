// internal/service/order/domain/event.go
package domain

import "time"

// PaymentCompleted arrives from the payment service once money moved.
type PaymentCompleted struct {
	OrderID       string    `json:"orderId"`
	TransactionID string    `json:"transactionId"`
	PaymentDate   time.Time `json:"paymentDate"`
	SagaID        string    `json:"sagaId"`
}

// PaymentFailed arrives when the payment could not be taken.
type PaymentFailed struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
	SagaID  string `json:"sagaId"`
}

// OrderCompleted is the saga's terminal success event.
type OrderCompleted struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	CartID      string    `json:"cartId"`
	StoreID     string    `json:"storeId"`
	SagaID      string    `json:"sagaId"`
	CompletedAt time.Time `json:"completedAt"`
}
