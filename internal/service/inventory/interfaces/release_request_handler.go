// internal/service/inventory/interfaces/release_request_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/idempotency"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/metrics"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// ReleaseRequestHandler consumes compensating release requests. Release
// is repeat-safe at the ledger (the reserved count clamps at zero), so
// the idempotency marker here only saves pointless datastore work.
type ReleaseRequestHandler struct {
	svc       *application.ReservationService
	markers   idempotency.Store
	markerTTL time.Duration
	retry     mq.RetryPolicy
}

func NewReleaseRequestHandler(svc *application.ReservationService, markers idempotency.Store, markerTTL time.Duration, retry mq.RetryPolicy) *ReleaseRequestHandler {
	return &ReleaseRequestHandler{
		svc:       svc,
		markers:   markers,
		markerTTL: markerTTL,
		retry:     retry,
	}
}

func (h *ReleaseRequestHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.ReleaseRequested
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, map[string]string{
		"saga_id":    event.SagaID,
		"product_id": event.ProductID,
		"store_id":   event.StoreID,
	})

	duplicate, err := acquireMarker(ctx, h.markers, idempotency.ReleaseKey(event.SagaID, event.StoreID, event.ProductID), h.markerTTL, h.retry, msg.Topic)
	if err != nil {
		return err
	}
	if duplicate {
		metrics.DuplicatesSuppressed.WithLabelValues(msg.Topic).Inc()
		logger.Ctx(ctx).Info().Msg("duplicate release request suppressed")
		return nil
	}

	err = mq.Retry(ctx, h.retry, func(ctx context.Context) error {
		return h.svc.Release(ctx, event.ProductID, event.StoreID, event.Quantity)
	}, reservationRetryable, retryLogger(ctx, msg.Topic))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("severity", "CRITICAL").Msg("stock release abandoned after exhausting retries")
		return err
	}

	logger.Ctx(ctx).Info().Int64("quantity", event.Quantity).Msg("reserved stock released")
	return nil
}
