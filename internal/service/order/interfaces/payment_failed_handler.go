// internal/service/order/interfaces/payment_failed_handler.go
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
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

// PaymentFailedHandler drives the compensation leg: fail the order and
// queue release requests for its reserved stock.
type PaymentFailedHandler struct {
	appSvc    *application.OrderApplicationService
	markers   idempotency.Store
	markerTTL time.Duration
	retry     mq.RetryPolicy
}

func NewPaymentFailedHandler(appSvc *application.OrderApplicationService, markers idempotency.Store, markerTTL time.Duration, retry mq.RetryPolicy) *PaymentFailedHandler {
	return &PaymentFailedHandler{
		appSvc:    appSvc,
		markers:   markers,
		markerTTL: markerTTL,
		retry:     retry,
	}
}

func (h *PaymentFailedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.PaymentFailed
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, map[string]string{
		"order_id": event.OrderID,
		"saga_id":  event.SagaID,
	})

	duplicate, err := acquireMarker(ctx, h.markers, idempotency.PaymentFailureKey(event.OrderID, event.SagaID), h.markerTTL, h.retry, msg.Topic)
	if err != nil {
		return err
	}
	if duplicate {
		metrics.DuplicatesSuppressed.WithLabelValues(msg.Topic).Inc()
		logger.Ctx(ctx).Info().Msg("duplicate payment failure suppressed")
		return nil
	}

	err = mq.Retry(ctx, h.retry, func(ctx context.Context) error {
		return h.appSvc.HandlePaymentFailed(ctx, &event)
	}, func(err error) bool { return !errors.Is(err, domain.ErrInvalidTransition) }, retryLogger(ctx, msg.Topic))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("severity", "CRITICAL").Msg("payment failure handling abandoned")
		return err
	}
	return nil
}
