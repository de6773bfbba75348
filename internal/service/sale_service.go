package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockino/internal/model"
	"stockino/internal/repository"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type LineItemRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"number"`
}

type CreateSaleRequest struct {
	OrganizationID string            `json:"organization_id" binding:"omitempty,uuid"`
	SaleDate       string            `json:"sale_date" binding:"required"`
	Notes          *string           `json:"notes"`
	Items          []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

type LineItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"number"`
	LineTotal   decimal.Decimal `json:"line_total" swaggertype:"number"`
}

type SaleResponse struct {
	ID          string             `json:"id"`
	SaleDate    string             `json:"sale_date"`
	TotalAmount decimal.Decimal    `json:"total_amount" swaggertype:"number"`
	Notes       *string            `json:"notes"`
	CreatedBy   string             `json:"created_by"`
	Items       []LineItemResponse `json:"items"`
	CreatedAt   string             `json:"created_at"`
}

type SaleService interface {
	GetSales(ctx context.Context, t Tenant, page, limit int) ([]SaleResponse, int64, error)
	GetSale(ctx context.Context, t Tenant, id string) (SaleResponse, error)
	CreateSale(ctx context.Context, t Tenant, req CreateSaleRequest) (SaleResponse, error)
	DeleteSale(ctx context.Context, t Tenant, id string) error
}

type saleService struct {
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	tenant      TenantService
	ledger      *stockLedger
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tenant TenantService,
	settings LedgerSettings,
	publisher StockEventPublisher,
) SaleService {
	return &saleService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		tenant:      tenant,
		ledger:      newStockLedger(productRepo, movementRepo, settings, publisher),
	}
}

func toSaleResponse(sale *model.Sale) SaleResponse {
	items := make([]LineItemResponse, 0, len(sale.Items))
	for _, it := range sale.Items {
		line := LineItemResponse{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
		}
		if it.Product != nil {
			line.ProductName = it.Product.Name
		}
		items = append(items, line)
	}
	return SaleResponse{
		ID:          sale.ID.String(),
		SaleDate:    sale.SaleDate.Format(dateLayout),
		TotalAmount: sale.TotalAmount,
		Notes:       sale.Notes,
		CreatedBy:   sale.CreatedBy.String(),
		Items:       items,
		CreatedAt:   sale.CreatedAt.Format(time.RFC3339),
	}
}

// parseLines validates item lines shared by sales and receipts.
func parseLines(items []LineItemRequest) ([]lineInput, error) {
	lines := make([]lineInput, 0, len(items))
	for i, it := range items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, invalid("items[%d].product_id must be a valid id", i)
		}
		if it.Quantity <= 0 {
			return nil, invalid("items[%d].quantity must be greater than 0", i)
		}
		if it.UnitPrice.IsNegative() {
			return nil, invalid("items[%d].unit_price must be at least 0", i)
		}
		lines = append(lines, lineInput{productID: id, quantity: it.Quantity})
	}
	return lines, nil
}

func (s *saleService) GetSales(ctx context.Context, t Tenant, page, limit int) ([]SaleResponse, int64, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return nil, 0, err
	}
	pg := pagination.New(page, limit)
	page, limit = pg.Page, pg.Limit
	sales, total, err := s.saleRepo.List(ctx, orgID, page, limit)
	if err != nil {
		if repository.IsUndefinedTable(err) {
			return []SaleResponse{}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	res := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		res = append(res, toSaleResponse(&sales[i]))
	}
	return res, total, nil
}

func (s *saleService) GetSale(ctx context.Context, t Tenant, id string) (SaleResponse, error) {
	if _, err := s.tenant.RequireOrganization(t); err != nil {
		return SaleResponse{}, err
	}
	saleID, err := uuid.Parse(id)
	if err != nil {
		return SaleResponse{}, invalid("invalid sale id")
	}
	sale, err := s.saleRepo.FindByIDWithItems(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SaleResponse{}, notFound("sale", saleID)
		}
		return SaleResponse{}, fmt.Errorf("database error: %w", err)
	}
	if err := s.tenant.AuthorizeResource(t, sale.OrganizationID); err != nil {
		return SaleResponse{}, err
	}
	return toSaleResponse(sale), nil
}

// CreateSale records a sale and draws its quantities from stock, all or nothing.
func (s *saleService) CreateSale(ctx context.Context, t Tenant, req CreateSaleRequest) (SaleResponse, error) {
	if err := validateRequest(req); err != nil {
		return SaleResponse{}, err
	}
	orgID, err := requireInventoryOrg(s.tenant, t, req.OrganizationID)
	if err != nil {
		return SaleResponse{}, err
	}
	saleDate, err := parseDate("sale_date", req.SaleDate)
	if err != nil {
		return SaleResponse{}, err
	}
	lines, err := parseLines(req.Items)
	if err != nil {
		return SaleResponse{}, err
	}

	totals, order := demand(lines)
	products, err := loadOwnedProducts(ctx, s.productRepo, orgID, order)
	if err != nil {
		return SaleResponse{}, err
	}
	if err := checkAvailability(products, totals, order); err != nil {
		return SaleResponse{}, err
	}

	sale := model.Sale{
		OrganizationID: orgID,
		SaleDate:       saleDate,
		Notes:          trimOptional(req.Notes),
		CreatedBy:      t.ProfileID,
		TotalAmount:    decimal.Zero,
	}
	for _, it := range req.Items {
		item := model.SaleItem{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
		sale.TotalAmount = sale.TotalAmount.Add(item.LineTotal())
		sale.Items = append(sale.Items, item)
	}

	var changed []*model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.saleRepo.Create(txCtx, &sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		for _, productID := range order {
			p, err := s.ledger.apply(txCtx, orgID, productID, -totals[productID], model.SourceSale, sale.ID)
			if err != nil {
				return err
			}
			changed = append(changed, p)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionCreateSale, sale.ID.String(), sale.TotalAmount.StringFixed(2), req)
	})
	if err != nil {
		return SaleResponse{}, err
	}

	s.ledger.publish(orgID, changed)

	for i := range sale.Items {
		p := products[sale.Items[i].ProductID]
		sale.Items[i].Product = &p
	}
	return toSaleResponse(&sale), nil
}

// DeleteSale removes a sale and puts its quantities back in stock.
func (s *saleService) DeleteSale(ctx context.Context, t Tenant, id string) error {
	if _, err := s.tenant.RequireOrganization(t); err != nil {
		return err
	}
	saleID, err := uuid.Parse(id)
	if err != nil {
		return invalid("invalid sale id")
	}
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("sale", saleID)
		}
		return fmt.Errorf("database error: %w", err)
	}
	if err := s.tenant.AuthorizeResource(t, sale.OrganizationID); err != nil {
		return err
	}
	if err := s.tenant.RequireCapability(t, model.CapManageInventory); err != nil {
		return err
	}

	var changed []*model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		full, err := s.saleRepo.FindByIDWithItems(txCtx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load sale items: %w", err)
		}
		lines := make([]lineInput, 0, len(full.Items))
		for _, it := range full.Items {
			lines = append(lines, lineInput{productID: it.ProductID, quantity: it.Quantity})
		}
		totals, order := demand(lines)
		for _, productID := range order {
			p, err := s.ledger.apply(txCtx, sale.OrganizationID, productID, totals[productID], model.SourceSale, sale.ID)
			if err != nil {
				return err
			}
			changed = append(changed, p)
		}
		if err := s.saleRepo.Delete(txCtx, saleID); err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionDeleteSale, saleID.String(), full.TotalAmount.StringFixed(2), map[string]int{"items": len(full.Items)})
	})
	if err != nil {
		return err
	}

	s.ledger.publish(sale.OrganizationID, changed)
	return nil
}
