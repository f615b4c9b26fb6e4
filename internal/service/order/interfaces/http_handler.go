package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler is the HTTP driving adapter for checkout.
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers the checkout routes on the ServeMux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/checkout", h.checkoutHandler)
}

type checkoutRequest struct {
	RequestID string `json:"requestId"`
	CartID    string `json:"cartId"`
	UserID    string `json:"userId"`
	StoreID   string `json:"storeId"`
	Items     []struct {
		ProductID string  `json:"productId"`
		Quantity  int64   `json:"quantity"`
		Price     float64 `json:"price"`
	} `json:"items"`
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
	SagaID  string `json:"sagaId"`
	Status  string `json:"status"`
}

func (h *OrderHandler) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "order-service.CheckoutHandler")
	defer span.End()

	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.RequestID == "" || body.CartID == "" || body.UserID == "" || body.StoreID == "" || len(body.Items) == 0 {
		http.Error(w, "requestId, cartId, userId, storeId and items are required", http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("request.id", body.RequestID),
		attribute.String("cart.id", body.CartID),
		attribute.Int("cart.items", len(body.Items)),
	)

	items := make([]domain.CartItem, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, domain.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.service.CreateOrderFromCart(ctx, &application.CreateOrderRequest{
		RequestID: body.RequestID,
		CartID:    body.CartID,
		UserID:    body.UserID,
		StoreID:   body.StoreID,
		Items:     items,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCart) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("request_id", body.RequestID).Msg("checkout failed")
		http.Error(w, "checkout failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(checkoutResponse{
		OrderID: order.ID,
		SagaID:  order.SagaID,
		Status:  string(order.Status),
	})
}
