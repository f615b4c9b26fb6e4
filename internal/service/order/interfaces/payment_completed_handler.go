// internal/service/order/interfaces/payment_completed_handler.go
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
	invdomain "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

// PaymentCompletedHandler drives the saga's success leg: commit the
// reserved stock, complete the order, emit order.completed. The marker
// keyed on (orderId, transactionId) guarantees a replayed payment event
// commits exactly once.
type PaymentCompletedHandler struct {
	appSvc    *application.OrderApplicationService
	markers   idempotency.Store
	markerTTL time.Duration
	retry     mq.RetryPolicy
}

func NewPaymentCompletedHandler(appSvc *application.OrderApplicationService, markers idempotency.Store, markerTTL time.Duration, retry mq.RetryPolicy) *PaymentCompletedHandler {
	return &PaymentCompletedHandler{
		appSvc:    appSvc,
		markers:   markers,
		markerTTL: markerTTL,
		retry:     retry,
	}
}

func (h *PaymentCompletedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.PaymentCompleted
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, map[string]string{
		"order_id":       event.OrderID,
		"transaction_id": event.TransactionID,
		"saga_id":        event.SagaID,
	})

	duplicate, err := acquireMarker(ctx, h.markers, idempotency.PaymentKey(event.OrderID, event.TransactionID), h.markerTTL, h.retry, msg.Topic)
	if err != nil {
		return err
	}
	if duplicate {
		metrics.DuplicatesSuppressed.WithLabelValues(msg.Topic).Inc()
		logger.Ctx(ctx).Info().Msg("duplicate payment completion suppressed")
		return nil
	}

	err = mq.Retry(ctx, h.retry, func(ctx context.Context) error {
		return h.appSvc.HandlePaymentCompleted(ctx, &event)
	}, paymentCompletedRetryable, retryLogger(ctx, msg.Topic))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("severity", "CRITICAL").Msg("payment completion abandoned")
		return err
	}
	return nil
}

// A missing order is a visibility race worth retrying; a missing
// reservation or an illegal status transition is a saga anomaly that
// retries cannot repair.
func paymentCompletedRetryable(err error) bool {
	if errors.Is(err, invdomain.ErrReservationNotFound) || errors.Is(err, domain.ErrInvalidTransition) {
		return false
	}
	return true
}
