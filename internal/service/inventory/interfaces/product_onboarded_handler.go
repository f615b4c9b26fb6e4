// internal/service/inventory/interfaces/product_onboarded_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/idempotency"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/metrics"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// ProductOnboardedHandler creates the ledger entry for a new product.
// The insert itself tolerates duplicates, so a replayed event past the
// marker TTL is still harmless.
type ProductOnboardedHandler struct {
	svc       *application.ReservationService
	markers   idempotency.Store
	markerTTL time.Duration
	retry     mq.RetryPolicy
}

func NewProductOnboardedHandler(svc *application.ReservationService, markers idempotency.Store, markerTTL time.Duration, retry mq.RetryPolicy) *ProductOnboardedHandler {
	return &ProductOnboardedHandler{
		svc:       svc,
		markers:   markers,
		markerTTL: markerTTL,
		retry:     retry,
	}
}

func (h *ProductOnboardedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.ProductOnboarded
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, map[string]string{
		"product_id": event.ProductID,
		"store_id":   event.StoreID,
	})

	duplicate, err := acquireMarker(ctx, h.markers, idempotency.OnboardKey(event.StoreID, event.ProductID), h.markerTTL, h.retry, msg.Topic)
	if err != nil {
		return err
	}
	if duplicate {
		metrics.DuplicatesSuppressed.WithLabelValues(msg.Topic).Inc()
		logger.Ctx(ctx).Info().Msg("duplicate onboarding event suppressed")
		return nil
	}

	err = mq.Retry(ctx, h.retry, func(ctx context.Context) error {
		return h.svc.Onboard(ctx, &event)
	}, func(err error) bool { return !errors.Is(err, domain.ErrInvalidQuantity) }, retryLogger(ctx, msg.Topic))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("severity", "CRITICAL").Msg("stock onboarding abandoned after exhausting retries")
		return err
	}

	logger.Ctx(ctx).Info().Int64("initial_quantity", event.InitialQuantity).Msg("stock record onboarded")
	return nil
}
