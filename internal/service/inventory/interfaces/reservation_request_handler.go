// internal/service/inventory/interfaces/reservation_request_handler.go
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
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/port"
)

// ReservationRequestHandler consumes reservation requests from checkout
// and answers with reservation.completed or reservation.failed.
type ReservationRequestHandler struct {
	svc       *application.ReservationService
	notifier  port.ReservationNotifier
	markers   idempotency.Store
	markerTTL time.Duration
	retry     mq.RetryPolicy
}

func NewReservationRequestHandler(svc *application.ReservationService, notifier port.ReservationNotifier, markers idempotency.Store, markerTTL time.Duration, retry mq.RetryPolicy) *ReservationRequestHandler {
	return &ReservationRequestHandler{
		svc:       svc,
		notifier:  notifier,
		markers:   markers,
		markerTTL: markerTTL,
		retry:     retry,
	}
}

func (h *ReservationRequestHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.ReservationRequested
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Malformed payloads are never going to parse on a retry.
		return err
	}

	ctx = logger.WithFields(ctx, map[string]string{
		"saga_id":    event.SagaID,
		"product_id": event.ProductID,
		"store_id":   event.StoreID,
	})

	duplicate, err := acquireMarker(ctx, h.markers, idempotency.ReservationKey(event.SagaID, event.StoreID, event.ProductID), h.markerTTL, h.retry, msg.Topic)
	if err != nil {
		return err
	}
	if duplicate {
		metrics.DuplicatesSuppressed.WithLabelValues(msg.Topic).Inc()
		logger.Ctx(ctx).Info().Msg("duplicate reservation request suppressed")
		return nil
	}

	err = mq.Retry(ctx, h.retry, func(ctx context.Context) error {
		return h.svc.Reserve(ctx, event.ProductID, event.StoreID, event.Quantity)
	}, reservationRetryable, retryLogger(ctx, msg.Topic))

	switch {
	case err == nil:
		completed := &domain.ReservationCompleted{
			ProductID:  event.ProductID,
			StoreID:    event.StoreID,
			Quantity:   event.Quantity,
			SagaID:     event.SagaID,
			ReservedAt: time.Now().UTC(),
		}
		if err := h.notifier.ReservationCompleted(ctx, completed); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("severity", "CRITICAL").Msg("stock reserved but completion event could not be published")
			return err
		}
		logger.Ctx(ctx).Info().Int64("quantity", event.Quantity).Msg("stock reserved")
		return nil

	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrInvalidQuantity):
		// A business outcome, not a fault: tell the order saga and ack.
		failed := &domain.ReservationFailed{
			OrderID:   event.OrderID,
			ProductID: event.ProductID,
			StoreID:   event.StoreID,
			Quantity:  event.Quantity,
			Reason:    err.Error(),
			SagaID:    event.SagaID,
		}
		if pubErr := h.notifier.ReservationFailed(ctx, failed); pubErr != nil {
			logger.Ctx(ctx).Error().Err(pubErr).Str("severity", "CRITICAL").Msg("reservation failure event could not be published")
			return pubErr
		}
		logger.Ctx(ctx).Warn().Err(err).Msg("reservation rejected")
		return nil

	default:
		logger.Ctx(ctx).Error().Err(err).Str("severity", "CRITICAL").Msg("reservation abandoned after exhausting retries")
		return err
	}
}

// Lock contention and infrastructure faults are worth another attempt;
// business outcomes are not.
func reservationRetryable(err error) bool {
	return !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrInvalidQuantity)
}

func acquireMarker(ctx context.Context, store idempotency.Store, key string, ttl time.Duration, policy mq.RetryPolicy, topic string) (duplicate bool, err error) {
	err = mq.Retry(ctx, policy, func(ctx context.Context) error {
		ok, acqErr := store.Acquire(ctx, key, ttl)
		if acqErr != nil {
			return acqErr
		}
		duplicate = !ok
		return nil
	}, nil, retryLogger(ctx, topic))
	return duplicate, err
}

func retryLogger(ctx context.Context, topic string) func(attempt int, err error) {
	return func(attempt int, err error) {
		metrics.HandlerRetries.WithLabelValues(topic).Inc()
		logger.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("topic", topic).Msg("handler attempt failed, backing off")
	}
}
