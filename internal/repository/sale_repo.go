package repository

import (
	"context"
	"time"

	"stockino/internal/model"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Sale, int64, error)
	ListBetween(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]model.Sale, error)
	ListRecent(ctx context.Context, orgID uuid.UUID, limit int) ([]model.Sale, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale and its items.
func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Create(sale).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).Preload("Items.Product").First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// Delete removes the items first so it does not depend on ON DELETE CASCADE being enforced.
func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("sale_id = ?", id).Delete(&model.SaleItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Sale{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pg := pagination.New(page, limit)
	if err := db.Preload("Items").Where("organization_id = ?", orgID).
		Order("sale_date desc, created_at desc").Offset(pg.Offset()).Limit(pg.Limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// ListBetween returns the sales of the inclusive [start, end] date range, newest first.
func (r *saleRepository) ListBetween(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	if err := GetDB(ctx, r.db).Preload("Items").
		Where("organization_id = ? AND sale_date >= ? AND sale_date <= ?", orgID, start, end).
		Order("sale_date desc, created_at desc").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) ListRecent(ctx context.Context, orgID uuid.UUID, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	if err := GetDB(ctx, r.db).Preload("Items").
		Where("organization_id = ?", orgID).
		Order("created_at desc").
		Limit(limit).
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
