package repository

import (
	"context"
	"fmt"
	"time"

	"stockino/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryTotals is the aggregate of an organization's products.
type InventoryTotals struct {
	Products   int
	Quantity   int
	Value      decimal.Decimal
	LowStock   int
	OutOfStock int
}

type ReportRepository interface {
	InventoryTotals(ctx context.Context, orgID uuid.UUID) (InventoryTotals, error)
	SalesSummary(ctx context.Context, orgID uuid.UUID, start, end time.Time) (model.SalesSummary, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) InventoryTotals(ctx context.Context, orgID uuid.UUID) (InventoryTotals, error) {
	var row struct {
		Products   int
		Quantity   int
		Value      decimal.Decimal
		LowStock   int
		OutOfStock int
	}
	if err := GetDB(ctx, r.db).Model(&model.Product{}).
		Select(`COUNT(*) AS products,
			COALESCE(SUM(quantity), 0) AS quantity,
			COALESCE(SUM(COALESCE(price, 0) * quantity), 0) AS value,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS low_stock,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS out_of_stock`,
			string(model.StatusLowStock), string(model.StatusOutOfStock)).
		Where("organization_id = ?", orgID).
		Scan(&row).Error; err != nil {
		return InventoryTotals{}, fmt.Errorf("failed to aggregate inventory: %w", err)
	}
	return InventoryTotals(row), nil
}

// SalesSummary counts and sums the sales dated within [start, end].
func (r *reportRepository) SalesSummary(ctx context.Context, orgID uuid.UUID, start, end time.Time) (model.SalesSummary, error) {
	var row struct {
		Count  int
		Amount decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Where("organization_id = ? AND sale_date >= ? AND sale_date <= ?", orgID, start, end).
		Scan(&row).Error; err != nil {
		return model.SalesSummary{}, err
	}
	return model.SalesSummary{Count: row.Count, Amount: row.Amount}, nil
}
