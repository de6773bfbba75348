package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"stockino/internal/model"
	"stockino/internal/repository"
	"stockino/internal/storage"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	OrganizationID string           `json:"organization_id" binding:"omitempty,uuid"`
	Name           string           `json:"name" binding:"required,max=255"`
	Category       *string          `json:"category" binding:"omitempty,max=255"`
	Description    *string          `json:"description"`
	Status         string           `json:"status" binding:"omitempty,oneof=in_stock low_stock out_of_stock archived"`
	Quantity       int              `json:"quantity" binding:"min=0"`
	Price          *decimal.Decimal `json:"price" swaggertype:"number"`
	ImageURL       *string          `json:"image_url"`
}

// UpdateProductRequest edits a product. Quantity is optional; when set it must come
// with ExpectedQuantity, the stock level the edit was based on.
type UpdateProductRequest struct {
	Name             string           `json:"name" binding:"required,max=255"`
	Category         *string          `json:"category" binding:"omitempty,max=255"`
	Description      *string          `json:"description"`
	Status           string           `json:"status" binding:"omitempty,oneof=in_stock low_stock out_of_stock archived"`
	Quantity         *int             `json:"quantity" binding:"omitempty,min=0"`
	ExpectedQuantity *int             `json:"expected_quantity" binding:"omitempty,min=0"`
	Price            *decimal.Decimal `json:"price" swaggertype:"number"`
	ImageURL         *string          `json:"image_url"`
}

type ProductResponse struct {
	ID             string              `json:"id"`
	OrganizationID string              `json:"organization_id"`
	Name           string              `json:"name"`
	Category       *string             `json:"category"`
	Description    *string             `json:"description"`
	Price          *decimal.Decimal    `json:"price" swaggertype:"number"`
	Quantity       int                 `json:"quantity"`
	Status         model.ProductStatus `json:"status" swaggertype:"string"`
	ImageURL       *string             `json:"image_url"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
}

type StockMovementResponse struct {
	ID              string `json:"id"`
	SourceType      string `json:"source_type"`
	SourceID        string `json:"source_id"`
	Direction       string `json:"direction"`
	QuantityChanged int    `json:"quantity_changed"`
	StockAfter      int    `json:"stock_after"`
	CreatedAt       string `json:"created_at"`
}

type ProductService interface {
	GetProducts(ctx context.Context, t Tenant, page, limit int, search string) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, t Tenant, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, t Tenant, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, t Tenant, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, t Tenant, id string) error
	UploadImage(ctx context.Context, t Tenant, filename string, data []byte) (string, error)
	GetStockMovements(ctx context.Context, t Tenant, id string, page, limit int) ([]StockMovementResponse, int64, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	tenant       TenantService
	storage      storage.ObjectStorage
	ledger       *stockLedger
}

func NewProductService(
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tenant TenantService,
	objects storage.ObjectStorage,
	settings LedgerSettings,
	publisher StockEventPublisher,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		tenant:       tenant,
		storage:      objects,
		ledger:       newStockLedger(productRepo, movementRepo, settings, publisher),
	}
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID.String(),
		OrganizationID: p.OrganizationID.String(),
		Name:           p.Name,
		Category:       p.Category,
		Description:    p.Description,
		Price:          p.Price,
		Quantity:       p.Quantity,
		Status:         p.Status,
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}

// resolveStatus keeps a manual archive and otherwise derives the tier from quantity.
func (s *productService) resolveStatus(requested string, quantity int) model.ProductStatus {
	if model.ProductStatus(requested) == model.StatusArchived {
		return model.StatusArchived
	}
	return model.DeriveStatus(quantity, s.ledger.settings.rule().LowStockThreshold)
}

func validatePrice(price *decimal.Decimal) error {
	if price != nil && price.IsNegative() {
		return invalid("price must be at least 0")
	}
	return nil
}

func (s *productService) GetProducts(ctx context.Context, t Tenant, page, limit int, search string) ([]ProductResponse, int64, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return nil, 0, err
	}
	pg := pagination.New(page, limit)
	page, limit = pg.Page, pg.Limit

	products, total, err := s.productRepo.List(ctx, orgID, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *productService) GetProduct(ctx context.Context, t Tenant, id string) (ProductResponse, error) {
	product, err := s.loadOwned(ctx, t, id)
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

// loadOwned finds a product and checks it belongs to the caller's organization.
func (s *productService) loadOwned(ctx context.Context, t Tenant, id string) (*model.Product, error) {
	if _, err := s.tenant.RequireOrganization(t); err != nil {
		return nil, err
	}
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid product id")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product", productID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if err := s.tenant.AuthorizeResource(t, product.OrganizationID); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, t Tenant, req CreateProductRequest) (ProductResponse, error) {
	if err := validateRequest(req); err != nil {
		return ProductResponse{}, err
	}
	orgID, err := requireInventoryOrg(s.tenant, t, req.OrganizationID)
	if err != nil {
		return ProductResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProductResponse{}, invalid("name is required")
	}
	if err := validatePrice(req.Price); err != nil {
		return ProductResponse{}, err
	}

	product := model.Product{
		OrganizationID: orgID,
		Name:           name,
		Category:       trimOptional(req.Category),
		Description:    trimOptional(req.Description),
		Price:          req.Price,
		Quantity:       req.Quantity,
		Status:         s.resolveStatus(req.Status, req.Quantity),
		ImageURL:       trimOptional(req.ImageURL),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(&product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, t Tenant, id string, req UpdateProductRequest) (ProductResponse, error) {
	if err := validateRequest(req); err != nil {
		return ProductResponse{}, err
	}
	product, err := s.loadOwned(ctx, t, id)
	if err != nil {
		return ProductResponse{}, err
	}
	if err := s.tenant.RequireCapability(t, model.CapManageInventory); err != nil {
		return ProductResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProductResponse{}, invalid("name is required")
	}
	if err := validatePrice(req.Price); err != nil {
		return ProductResponse{}, err
	}

	if req.Quantity != nil && req.ExpectedQuantity == nil {
		return ProductResponse{}, invalid("expected_quantity is required when quantity is set")
	}

	previousImage := product.ImageURL
	product.Name = name
	product.Category = trimOptional(req.Category)
	product.Description = trimOptional(req.Description)
	product.Price = req.Price
	product.ImageURL = trimOptional(req.ImageURL)

	stockChanged := false
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.UpdateDetails(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if req.Quantity != nil && *req.Quantity != *req.ExpectedQuantity {
			if _, err := s.ledger.adjustTo(txCtx, product.OrganizationID, product.ID, *req.ExpectedQuantity, *req.Quantity); err != nil {
				return err
			}
			stockChanged = true
		}
		if req.Status != "" {
			archived := model.ProductStatus(req.Status) == model.StatusArchived
			if err := s.productRepo.UpdateStatus(txCtx, product.OrganizationID, product.ID, archived, s.ledger.settings.rule()); err != nil {
				return fmt.Errorf("failed to update product status: %w", err)
			}
			stockChanged = true
		}
		fresh, err := s.productRepo.FindByID(txCtx, product.ID)
		if err != nil {
			return fmt.Errorf("failed to reload product: %w", err)
		}
		product = fresh
		return writeAudit(txCtx, s.auditRepo, t, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	if previousImage != nil && (product.ImageURL == nil || *product.ImageURL != *previousImage) {
		s.removeImage(ctx, *previousImage)
	}
	if stockChanged {
		s.ledger.publish(product.OrganizationID, []*model.Product{product})
	}

	return toProductResponse(product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, t Tenant, id string) error {
	product, err := s.loadOwned(ctx, t, id)
	if err != nil {
		return err
	}
	if err := s.tenant.RequireCapability(t, model.CapManageInventory); err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, product.OrganizationID, product.ID); err != nil {
			if repository.IsForeignKeyViolation(err) {
				return invalid("product is referenced by existing sales or receipts")
			}
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionDeleteProduct, product.ID.String(), product.Name, map[string]string{"id": id})
	})
	if err != nil {
		return err
	}

	if product.ImageURL != nil {
		s.removeImage(ctx, *product.ImageURL)
	}
	return nil
}

var allowedImageExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadImage stores an image under {organization_id}/{unix_ms}-{filename} and returns its public URL.
func (s *productService) UploadImage(ctx context.Context, t Tenant, filename string, data []byte) (string, error) {
	orgID, err := requireInventoryOrg(s.tenant, t, "")
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", invalid("file is empty")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExt[ext] {
		return "", invalid("only image files (png, jpg, jpeg, gif, webp) are allowed")
	}
	clean := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	objectPath := fmt.Sprintf("%s/%d-%s", orgID, time.Now().UnixMilli(), clean)

	url, err := s.storage.Upload(ctx, objectPath, data)
	if err != nil {
		if errors.Is(err, storage.ErrBucketMissing) {
			return "", unavailable("image storage", err)
		}
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

func (s *productService) GetStockMovements(ctx context.Context, t Tenant, id string, page, limit int) ([]StockMovementResponse, int64, error) {
	product, err := s.loadOwned(ctx, t, id)
	if err != nil {
		return nil, 0, err
	}
	pg := pagination.New(page, limit)
	page, limit = pg.Page, pg.Limit
	movements, total, err := s.movementRepo.ListByProduct(ctx, product.OrganizationID, product.ID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}
	res := make([]StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		res = append(res, StockMovementResponse{
			ID:              m.ID.String(),
			SourceType:      m.SourceType,
			SourceID:        m.SourceID.String(),
			Direction:       m.Direction,
			QuantityChanged: m.QuantityChanged,
			StockAfter:      m.StockAfter,
			CreatedAt:       m.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

// removeImage deletes a stored image; failures are logged and never surface.
func (s *productService) removeImage(ctx context.Context, url string) {
	if s.storage == nil {
		return
	}
	objectPath, ok := s.storage.PathFromURL(url)
	if !ok {
		return
	}
	if err := s.storage.Remove(ctx, objectPath); err != nil {
		log.Printf("failed to remove product image %s: %v", objectPath, err)
	}
}

func directionOf(delta int) string {
	if delta < 0 {
		return model.DirectionOut
	}
	return model.DirectionIn
}
