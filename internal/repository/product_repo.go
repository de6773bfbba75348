package repository

import (
	"context"
	"strings"

	"stockino/internal/model"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRule carries the tier settings used when the ledger recomputes a status.
type StockRule struct {
	LowStockThreshold int
	StickyArchived    bool
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	UpdateDetails(ctx context.Context, product *model.Product) error
	UpdateStatus(ctx context.Context, orgID, id uuid.UUID, archived bool, rule StockRule) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]model.Product, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Product, int64, error)
	ListAll(ctx context.Context, orgID uuid.UUID) ([]model.Product, error)
	ListLowStock(ctx context.Context, orgID uuid.UUID, limit int) ([]model.Product, error)
	ApplyDelta(ctx context.Context, orgID, id uuid.UUID, delta int, rule StockRule) (*model.Product, bool, error)
	SetQuantity(ctx context.Context, orgID, id uuid.UUID, expected, quantity int, rule StockRule) (*model.Product, bool, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

// UpdateDetails writes the descriptive columns only. Quantity and status belong
// to the stock ledger and are never written from a previously read row.
func (r *productRepository) UpdateDetails(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Model(product).
		Where("organization_id = ?", product.OrganizationID).
		Select("name", "category", "description", "price", "image_url").
		Updates(product).Error
}

// UpdateStatus archives a product, or releases it to the tier its current quantity implies.
func (r *productRepository) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, archived bool, rule StockRule) error {
	var status interface{} = string(model.StatusArchived)
	if !archived {
		status = statusExpr(0, StockRule{LowStockThreshold: rule.LowStockThreshold})
	}
	return GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("status", status).Error
}

func (r *productRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ? AND organization_id = ?", id, orgID).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns the products of orgID among ids; foreign or unknown ids are simply absent.
func (r *productRepository) FindByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := GetDB(ctx, r.db).Where("organization_id = ? AND id IN ?", orgID, ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("organization_id = ?", orgID)
	if search = strings.TrimSpace(search); search != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pg := pagination.New(page, limit)
	if err := db.Order("created_at desc").Offset(pg.Offset()).Limit(pg.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListAll(ctx context.Context, orgID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Where("organization_id = ?", orgID).Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListLowStock(ctx context.Context, orgID uuid.UUID, limit int) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND status IN ?", orgID, []string{string(model.StatusLowStock), string(model.StatusOutOfStock)}).
		Order("quantity asc, name asc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ApplyDelta adds delta to the product quantity and recomputes its status in one
// conditional UPDATE, so concurrent callers can never drive the quantity below zero.
// When nothing was updated it returns applied=false with the current row, or
// gorm.ErrRecordNotFound if the product does not exist in orgID.
func (r *productRepository) ApplyDelta(ctx context.Context, orgID, id uuid.UUID, delta int, rule StockRule) (*model.Product, bool, error) {
	db := GetDB(ctx, r.db)

	res := db.Model(&model.Product{}).
		Where("id = ? AND organization_id = ? AND quantity + ? >= 0", id, orgID, delta).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", delta),
			"status":   statusExpr(delta, rule),
		})
	if res.Error != nil {
		return nil, false, res.Error
	}

	var product model.Product
	if err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&product).Error; err != nil {
		return nil, false, err
	}
	return &product, res.RowsAffected == 1, nil
}

// SetQuantity moves the product from expected to quantity in one conditional UPDATE.
// applied is false when the stored quantity no longer equals expected, in which
// case the current row is returned untouched.
func (r *productRepository) SetQuantity(ctx context.Context, orgID, id uuid.UUID, expected, quantity int, rule StockRule) (*model.Product, bool, error) {
	db := GetDB(ctx, r.db)
	delta := quantity - expected

	res := db.Model(&model.Product{}).
		Where("id = ? AND organization_id = ? AND quantity = ?", id, orgID, expected).
		Updates(map[string]interface{}{
			"quantity": quantity,
			"status":   statusExpr(delta, rule),
		})
	if res.Error != nil {
		return nil, false, res.Error
	}

	var product model.Product
	if err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&product).Error; err != nil {
		return nil, false, err
	}
	return &product, res.RowsAffected == 1, nil
}

func statusExpr(delta int, rule StockRule) clause.Expr {
	sql := "CASE "
	args := make([]interface{}, 0, 8)
	if rule.StickyArchived {
		sql += "WHEN status = ? THEN status "
		args = append(args, string(model.StatusArchived))
	}
	sql += "WHEN quantity + ? <= 0 THEN ? WHEN quantity + ? < ? THEN ? ELSE ? END"
	args = append(args, delta, string(model.StatusOutOfStock), delta, rule.LowStockThreshold, string(model.StatusLowStock), string(model.StatusInStock))
	return gorm.Expr(sql, args...)
}
