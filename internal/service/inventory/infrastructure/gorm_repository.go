// internal/service/inventory/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// StockModel is the GORM mapping of the ledger document.
type StockModel struct {
	ID                uint   `gorm:"primaryKey"`
	ProductID         string `gorm:"type:varchar(64);not null;uniqueIndex:idx_store_product,priority:2"`
	StoreID           string `gorm:"type:varchar(64);not null;uniqueIndex:idx_store_product,priority:1"`
	QuantityOnHand    int64  `gorm:"not null;default:0"`
	QuantityAvailable int64  `gorm:"not null;default:0"`
	QuantityReserved  int64  `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (StockModel) TableName() string {
	return "stock_records"
}

// GormStockRepository implements domain.StockRepository on MySQL. Every
// mutation is a conditional UPDATE whose predicate re-states the business
// precondition, run inside a short transaction; an affected-row count of
// zero means the precondition did not hold.
type GormStockRepository struct {
	db *gorm.DB
}

func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

func (r *GormStockRepository) Create(ctx context.Context, record *domain.StockRecord) error {
	model := &StockModel{
		ProductID:         record.ProductID,
		StoreID:           record.StoreID,
		QuantityOnHand:    record.QuantityOnHand,
		QuantityAvailable: record.QuantityAvailable,
		QuantityReserved:  record.QuantityReserved,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
	// Onboarding events are retried; a duplicate insert is not an error.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
	return errors.Wrap(err, "create stock record")
}

func (r *GormStockRepository) Find(ctx context.Context, productID, storeID string) (*domain.StockRecord, error) {
	var model StockModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND store_id = ?", productID, storeID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStockNotFound
		}
		return nil, errors.Wrap(err, "find stock record")
	}
	return toDomainStock(&model), nil
}

func (r *GormStockRepository) Reserve(ctx context.Context, productID, storeID string, quantity int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&StockModel{}).
			Where("product_id = ? AND store_id = ? AND quantity_available >= ?", productID, storeID, quantity).
			Updates(map[string]interface{}{
				"quantity_available": gorm.Expr("quantity_available - ?", quantity),
				"quantity_reserved":  gorm.Expr("quantity_reserved + ?", quantity),
				"updated_at":         time.Now().UTC(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return domain.ErrInsufficientStock
		}
		return nil
	})
}

func (r *GormStockRepository) Commit(ctx context.Context, productID, storeID string, quantity int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&StockModel{}).
			Where("product_id = ? AND store_id = ? AND quantity_reserved >= ?", productID, storeID, quantity).
			Updates(map[string]interface{}{
				"quantity_reserved": gorm.Expr("quantity_reserved - ?", quantity),
				"quantity_on_hand":  gorm.Expr("quantity_on_hand - ?", quantity),
				"updated_at":        time.Now().UTC(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "commit stock")
		}
		if res.RowsAffected == 0 {
			return domain.ErrReservationNotFound
		}
		return nil
	})
}

func (r *GormStockRepository) Release(ctx context.Context, productID, storeID string, quantity int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock first: the freed amount is clamped to what is still
		// reserved, so a duplicate release cannot drive the reserved
		// count negative or inflate availability.
		var model StockModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND store_id = ?", productID, storeID).
			First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrStockNotFound
			}
			return errors.Wrap(err, "release stock: load record")
		}

		freed := quantity
		if freed > model.QuantityReserved {
			freed = model.QuantityReserved
		}
		if freed == 0 {
			return nil
		}

		res := tx.Model(&StockModel{}).
			Where("id = ? AND quantity_reserved >= ?", model.ID, freed).
			Updates(map[string]interface{}{
				"quantity_available": gorm.Expr("quantity_available + ?", freed),
				"quantity_reserved":  gorm.Expr("quantity_reserved - ?", freed),
				"updated_at":         time.Now().UTC(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "release stock")
		}
		return nil
	})
}

func toDomainStock(model *StockModel) *domain.StockRecord {
	return &domain.StockRecord{
		ProductID:         model.ProductID,
		StoreID:           model.StoreID,
		QuantityOnHand:    model.QuantityOnHand,
		QuantityAvailable: model.QuantityAvailable,
		QuantityReserved:  model.QuantityReserved,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
