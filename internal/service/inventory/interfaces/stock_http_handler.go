package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// StockHandler exposes the availability read path over HTTP.
type StockHandler struct {
	service *application.ReservationService
}

func NewStockHandler(service *application.ReservationService) *StockHandler {
	return &StockHandler{service: service}
}

func (h *StockHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stock", h.getStockHandler)
}

func (h *StockHandler) getStockHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer("inventory-service")
	ctx, span := tracer.Start(ctx, "inventory-service.GetStock")
	defer span.End()

	productID := r.URL.Query().Get("productId")
	storeID := r.URL.Query().Get("storeId")
	if productID == "" || storeID == "" {
		http.Error(w, "productId and storeId are required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("store.id", storeID),
	)

	record, err := h.service.GetStock(ctx, productID, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrStockNotFound) {
			http.Error(w, "stock record not found", http.StatusNotFound)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("product_id", productID).Msg("stock lookup failed")
		http.Error(w, "stock lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}
