// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	invdomain "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/port"
)

// OrderApplicationService orchestrates the order side of the fulfillment
// saga: idempotent order creation at checkout and the status transitions
// driven by payment events.
type OrderApplicationService struct {
	orders       domain.OrderRepository
	stock        port.StockCommitter
	reservations port.ReservationRequester
	releases     port.ReleasePublisher
	events       port.OrderEventsPublisher
	tracer       trace.Tracer
}

func NewOrderApplicationService(orders domain.OrderRepository, stock port.StockCommitter, reservations port.ReservationRequester, releases port.ReleasePublisher, events port.OrderEventsPublisher, tracer trace.Tracer) *OrderApplicationService {
	return &OrderApplicationService{
		orders:       orders,
		stock:        stock,
		reservations: reservations,
		releases:     releases,
		events:       events,
		tracer:       tracer,
	}
}

// CreateOrderFromCart is the saga's outer deduplication boundary: calling
// it twice with the same RequestID returns the same order and persists
// exactly one row.
func (s *OrderApplicationService) CreateOrderFromCart(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrderFromCart")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", req.RequestID))

	existing, err := s.orders.FindByRequestID(ctx, req.RequestID)
	if err == nil {
		span.AddEvent("request already has an order, returning it unchanged")
		return existing, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		span.RecordError(err)
		return nil, err
	}

	order, err := domain.NewOrder(uuid.New().String(), req.RequestID, req.CartID, req.UserID, req.StoreID, uuid.New().String(), req.Items)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// Lost the race against a concurrent duplicate checkout: the
		// winner's row is the order.
		if errors.Is(err, domain.ErrDuplicateRequest) {
			return s.orders.FindByRequestID(ctx, req.RequestID)
		}
		span.RecordError(err)
		return nil, err
	}

	// Kick off the reservation leg, one request per cart line. The
	// inventory consumer dedupes on (sagaId, storeId, productId), so a
	// crash mid-loop followed by a retried checkout is harmless.
	for _, item := range order.CartItems {
		request := &invdomain.ReservationRequested{
			ProductID: item.ProductID,
			StoreID:   order.StoreID,
			Quantity:  item.Quantity,
			SagaID:    order.SagaID,
			OrderID:   order.ID,
		}
		if err := s.reservations.RequestReservation(ctx, request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to publish reservation request")
			return nil, err
		}
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("request_id", order.RequestID).
		Str("saga_id", order.SagaID).
		Msg("order created, pending reservation and payment")
	return order, nil
}

// HandlePaymentCompleted commits the reserved stock for every cart line,
// completes the order, and emits the saga's terminal success event.
func (s *OrderApplicationService) HandlePaymentCompleted(ctx context.Context, event *domain.PaymentCompleted) error {
	ctx, span := s.tracer.Start(ctx, "order.HandlePaymentCompleted", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("transaction.id", event.TransactionID),
	)

	order, err := s.orders.FindByID(ctx, event.OrderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if order.Status == domain.StatusCompleted {
		// Replay past the idempotency marker's TTL; nothing to redo.
		logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("payment event for already completed order ignored")
		return nil
	}
	if order.Status.Terminal() {
		err := fmt.Errorf("%w: payment completed for %s order %s", domain.ErrInvalidTransition, order.Status, order.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment completed after terminal status")
		return err
	}

	for _, item := range order.CartItems {
		if err := s.stock.Commit(ctx, item.ProductID, order.StoreID, item.Quantity); err != nil {
			span.RecordError(err)
			if errors.Is(err, invdomain.ErrReservationNotFound) {
				// Saga ordering bug or a late duplicate commit. No
				// automatic compensation; the dead letter is the
				// reconciliation trail.
				span.SetStatus(codes.Error, "commit found no reservation")
				logger.Ctx(ctx).Error().
					Str("severity", "CRITICAL").
					Str("order_id", order.ID).
					Str("product_id", item.ProductID).
					Msg("stock commit found no reservation, order left pending for reconciliation")
			}
			return err
		}
	}

	if err := order.Complete(); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist completed order")
		return err
	}

	completed := &domain.OrderCompleted{
		OrderID:     order.ID,
		UserID:      order.UserID,
		CartID:      order.CartID,
		StoreID:     order.StoreID,
		SagaID:      event.SagaID,
		CompletedAt: time.Now().UTC(),
	}
	if err := s.events.OrderCompleted(ctx, completed); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order completed")
	return nil
}

// HandlePaymentFailed fails the order and emits a compensating release
// for every cart line so the reserved units go back on sale.
func (s *OrderApplicationService) HandlePaymentFailed(ctx context.Context, event *domain.PaymentFailed) error {
	ctx, span := s.tracer.Start(ctx, "order.HandlePaymentFailed", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("failure.reason", event.Reason),
	)

	order, err := s.orders.FindByID(ctx, event.OrderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if order.Status == domain.StatusFailed {
		logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("payment failure for already failed order ignored")
		return nil
	}
	if order.Status.Terminal() {
		err := fmt.Errorf("%w: payment failed for %s order %s", domain.ErrInvalidTransition, order.Status, order.ID)
		span.RecordError(err)
		return err
	}

	// Releases go out before the status flip: the release consumer is
	// repeat-safe, so a crash between the two only re-sends releases on
	// replay, never loses them.
	for _, item := range order.CartItems {
		release := &invdomain.ReleaseRequested{
			ProductID: item.ProductID,
			StoreID:   order.StoreID,
			Quantity:  item.Quantity,
			SagaID:    event.SagaID,
		}
		if err := s.releases.RequestRelease(ctx, release); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if err := order.Fail(); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Ctx(ctx).Warn().
		Str("order_id", order.ID).
		Str("reason", event.Reason).
		Msg("order failed, reserved stock queued for release")
	return nil
}
