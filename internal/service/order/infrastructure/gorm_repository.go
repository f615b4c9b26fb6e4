// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

// OrderModel is the GORM mapping of the order aggregate. Cart items are
// stored as a JSON snapshot; they are immutable after creation so there
// is nothing relational to gain from a line-item table here.
type OrderModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	RequestID string `gorm:"type:varchar(64);not null;uniqueIndex"`
	CartID    string `gorm:"type:varchar(64);not null;index"`
	UserID    string `gorm:"type:varchar(64);not null;index"`
	StoreID   string `gorm:"type:varchar(64);not null"`
	Status    string `gorm:"type:varchar(16);not null"`
	Version   int64  `gorm:"not null;default:1"`
	CartItems []byte `gorm:"type:json;not null"`
	SagaID    string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// GormOrderRepository implements domain.OrderRepository on MySQL.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model, err := toOrderModel(order)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateRequest
		}
		return errors.Wrap(err, "create order")
	}
	return nil
}

// Save persists a mutated aggregate. The version column increments
// atomically in the database; the in-memory copy follows on success.
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":     string(order.Status),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "save order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	order.Version++
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormOrderRepository) FindByRequestID(ctx context.Context, requestID string) (*domain.Order, error) {
	return r.findOne(ctx, "request_id = ?", requestID)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return toDomainOrder(&model)
}

func toOrderModel(order *domain.Order) (*OrderModel, error) {
	items, err := json.Marshal(order.CartItems)
	if err != nil {
		return nil, errors.Wrap(err, "encode cart items")
	}
	return &OrderModel{
		ID:        order.ID,
		RequestID: order.RequestID,
		CartID:    order.CartID,
		UserID:    order.UserID,
		StoreID:   order.StoreID,
		Status:    string(order.Status),
		Version:   order.Version,
		CartItems: items,
		SagaID:    order.SagaID,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}, nil
}

func toDomainOrder(model *OrderModel) (*domain.Order, error) {
	var items []domain.CartItem
	if err := json.Unmarshal(model.CartItems, &items); err != nil {
		return nil, errors.Wrap(err, "decode cart items")
	}
	return &domain.Order{
		ID:        model.ID,
		RequestID: model.RequestID,
		CartID:    model.CartID,
		UserID:    model.UserID,
		StoreID:   model.StoreID,
		Status:    domain.Status(model.Status),
		Version:   model.Version,
		CartItems: items,
		SagaID:    model.SagaID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

// isDuplicateKey matches MySQL error 1062 without importing the driver's
// error types here.
func isDuplicateKey(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "1062"))
}
