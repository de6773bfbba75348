package repository

import (
	"context"

	"stockino/internal/model"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovementRepository persists the stock card rows written alongside every ledger delta.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	ListByProduct(ctx context.Context, orgID, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockMovementRepository) ListByProduct(ctx context.Context, orgID, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{}).
		Where("organization_id = ? AND product_id = ?", orgID, productID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pg := pagination.New(page, limit)
	if err := db.Order("created_at desc").Offset(pg.Offset()).Limit(pg.Limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}
