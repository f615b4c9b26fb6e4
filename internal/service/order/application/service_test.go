package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	invdomain "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

type memoryOrderRepository struct {
	mu        sync.Mutex
	byID      map[string]*domain.Order
	byRequest map[string]string
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{
		byID:      make(map[string]*domain.Order),
		byRequest: make(map[string]string),
	}
}

func (r *memoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRequest[order.RequestID]; ok {
		return domain.ErrDuplicateRequest
	}
	clone := *order
	r.byID[order.ID] = &clone
	r.byRequest[order.RequestID] = order.ID
	return nil
}

func (r *memoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	order.Version++
	clone := *order
	r.byID[order.ID] = &clone
	return nil
}

func (r *memoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *memoryOrderRepository) FindByRequestID(ctx context.Context, requestID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRequest[requestID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *r.byID[id]
	return &clone, nil
}

// sagaBus fakes every outbound port and records what crossed it.
type sagaBus struct {
	mu           sync.Mutex
	commits      []string
	commitErr    error
	reservations []*invdomain.ReservationRequested
	releases     []*invdomain.ReleaseRequested
	completed    []*domain.OrderCompleted
}

func (b *sagaBus) Commit(ctx context.Context, productID, storeID string, quantity int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.commitErr != nil {
		return b.commitErr
	}
	b.commits = append(b.commits, productID)
	return nil
}

func (b *sagaBus) RequestReservation(ctx context.Context, event *invdomain.ReservationRequested) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reservations = append(b.reservations, event)
	return nil
}

func (b *sagaBus) RequestRelease(ctx context.Context, event *invdomain.ReleaseRequested) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releases = append(b.releases, event)
	return nil
}

func (b *sagaBus) OrderCompleted(ctx context.Context, event *domain.OrderCompleted) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, event)
	return nil
}

func newTestOrderService(t *testing.T) (*OrderApplicationService, *memoryOrderRepository, *sagaBus) {
	t.Helper()
	orders := newMemoryOrderRepository()
	bus := &sagaBus{}
	svc := NewOrderApplicationService(orders, bus, bus, bus, bus, otel.Tracer("test"))
	return svc, orders, bus
}

func checkoutRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		RequestID: "req-1",
		CartID:    "cart-1",
		UserID:    "user-1",
		StoreID:   "store-1",
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2, Price: 19.99},
			{ProductID: "p2", Quantity: 1, Price: 5.00},
		},
	}
}

func TestCreateOrderFromCart_PublishesOneReservationPerLine(t *testing.T) {
	ctx := context.Background()
	svc, _, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	require.Len(t, bus.reservations, 2)
	for _, r := range bus.reservations {
		assert.Equal(t, order.SagaID, r.SagaID)
		assert.Equal(t, order.ID, r.OrderID)
		assert.Equal(t, "store-1", r.StoreID)
	}
	assert.Equal(t, int64(2), bus.reservations[0].Quantity)
	assert.Equal(t, "p1", bus.reservations[0].ProductID)
}

func TestCreateOrderFromCart_SameRequestIDReturnsSameOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, bus := newTestOrderService(t)

	first, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	second, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.SagaID, second.SagaID)
	// The retry must not fan out a second wave of reservation requests.
	assert.Len(t, bus.reservations, 2)
}

func TestHandlePaymentCompleted_CommitsEveryLineAndCompletes(t *testing.T) {
	ctx := context.Background()
	svc, orders, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	event := &domain.PaymentCompleted{OrderID: order.ID, TransactionID: "tx-1", SagaID: order.SagaID}
	require.NoError(t, svc.HandlePaymentCompleted(ctx, event))

	assert.Equal(t, []string{"p1", "p2"}, bus.commits)
	require.Len(t, bus.completed, 1)
	assert.Equal(t, order.ID, bus.completed[0].OrderID)

	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestHandlePaymentCompleted_AlreadyCompletedIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	event := &domain.PaymentCompleted{OrderID: order.ID, TransactionID: "tx-1", SagaID: order.SagaID}
	require.NoError(t, svc.HandlePaymentCompleted(ctx, event))
	require.NoError(t, svc.HandlePaymentCompleted(ctx, event))

	// No second round of commits or completion events.
	assert.Len(t, bus.commits, 2)
	assert.Len(t, bus.completed, 1)
}

func TestHandlePaymentCompleted_FailedOrderRejectsPayment(t *testing.T) {
	ctx := context.Background()
	svc, _, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	failure := &domain.PaymentFailed{OrderID: order.ID, Reason: "card declined", SagaID: order.SagaID}
	require.NoError(t, svc.HandlePaymentFailed(ctx, failure))

	event := &domain.PaymentCompleted{OrderID: order.ID, TransactionID: "tx-1", SagaID: order.SagaID}
	err = svc.HandlePaymentCompleted(ctx, event)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, bus.commits)
}

func TestHandlePaymentCompleted_MissingReservationLeavesOrderPending(t *testing.T) {
	ctx := context.Background()
	svc, orders, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	bus.commitErr = invdomain.ErrReservationNotFound
	event := &domain.PaymentCompleted{OrderID: order.ID, TransactionID: "tx-1", SagaID: order.SagaID}
	err = svc.HandlePaymentCompleted(ctx, event)
	assert.ErrorIs(t, err, invdomain.ErrReservationNotFound)

	// The order stays PENDING for reconciliation, no completion emitted.
	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Empty(t, bus.completed)
}

func TestHandlePaymentFailed_EmitsOneReleasePerLine(t *testing.T) {
	ctx := context.Background()
	svc, orders, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	event := &domain.PaymentFailed{OrderID: order.ID, Reason: "card declined", SagaID: order.SagaID}
	require.NoError(t, svc.HandlePaymentFailed(ctx, event))

	require.Len(t, bus.releases, 2)
	assert.Equal(t, "p1", bus.releases[0].ProductID)
	assert.Equal(t, int64(2), bus.releases[0].Quantity)
	assert.Equal(t, order.SagaID, bus.releases[0].SagaID)

	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestHandlePaymentFailed_AlreadyFailedIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	event := &domain.PaymentFailed{OrderID: order.ID, Reason: "card declined", SagaID: order.SagaID}
	require.NoError(t, svc.HandlePaymentFailed(ctx, event))
	require.NoError(t, svc.HandlePaymentFailed(ctx, event))

	// Redelivery does not double the compensating releases.
	assert.Len(t, bus.releases, 2)
}

func TestHandlePaymentFailed_UnknownOrderErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestOrderService(t)

	event := &domain.PaymentFailed{OrderID: "missing", Reason: "card declined", SagaID: "saga-x"}
	err := svc.HandlePaymentFailed(ctx, event)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestHandlePaymentCompleted_TransientCommitErrorPropagates(t *testing.T) {
	ctx := context.Background()
	svc, orders, bus := newTestOrderService(t)

	order, err := svc.CreateOrderFromCart(ctx, checkoutRequest())
	require.NoError(t, err)

	bus.commitErr = errors.New("db connection reset")
	event := &domain.PaymentCompleted{OrderID: order.ID, TransactionID: "tx-1", SagaID: order.SagaID}
	require.Error(t, svc.HandlePaymentCompleted(ctx, event))

	// Still PENDING: the consumer retry loop will redeliver.
	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}
