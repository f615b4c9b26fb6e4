// internal/service/order/application/dto.go
package application

import (
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

// CreateOrderRequest is the checkout payload handed to the application
// layer. RequestID is the caller-supplied idempotency key.
type CreateOrderRequest struct {
	RequestID string            `json:"requestId"`
	CartID    string            `json:"cartId"`
	UserID    string            `json:"userId"`
	StoreID   string            `json:"storeId"`
	Items     []domain.CartItem `json:"items"`
}
