package repository

import (
	"context"

	"stockino/internal/model"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *model.Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, receiptType string, page, limit int) ([]model.Receipt, int64, error)
	CountReferencePrefix(ctx context.Context, orgID uuid.UUID, prefix string) (int64, error)
	CountInvoicePrefix(ctx context.Context, orgID uuid.UUID, prefix string) (int64, error)
}

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

// Create inserts the receipt and its items.
func (r *receiptRepository) Create(ctx context.Context, receipt *model.Receipt) error {
	return GetDB(ctx, r.db).Create(receipt).Error
}

func (r *receiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	var receipt model.Receipt
	if err := GetDB(ctx, r.db).First(&receipt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	var receipt model.Receipt
	if err := GetDB(ctx, r.db).Preload("Items.Product").First(&receipt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("receipt_id = ?", id).Delete(&model.ReceiptItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Receipt{}).Error
}

func (r *receiptRepository) List(ctx context.Context, orgID uuid.UUID, receiptType string, page, limit int) ([]model.Receipt, int64, error) {
	var receipts []model.Receipt
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Receipt{}).Where("organization_id = ?", orgID)
	if receiptType != "" {
		query = query.Where("type = ?", receiptType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pg := pagination.New(page, limit)
	fetchQuery := db.Preload("Items.Product").Where("organization_id = ?", orgID)
	if receiptType != "" {
		fetchQuery = fetchQuery.Where("type = ?", receiptType)
	}
	if err := fetchQuery.Order("created_at desc").Offset(pg.Offset()).Limit(pg.Limit).Find(&receipts).Error; err != nil {
		return nil, 0, err
	}

	return receipts, total, nil
}

func (r *receiptRepository) CountReferencePrefix(ctx context.Context, orgID uuid.UUID, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Receipt{}).
		Where("organization_id = ? AND reference LIKE ?", orgID, prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *receiptRepository) CountInvoicePrefix(ctx context.Context, orgID uuid.UUID, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Receipt{}).
		Where("organization_id = ? AND invoice_number LIKE ?", orgID, prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
