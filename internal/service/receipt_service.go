package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockino/internal/export"
	"stockino/internal/model"
	"stockino/internal/repository"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateReceiptRequest struct {
	OrganizationID string            `json:"organization_id" binding:"omitempty,uuid"`
	Type           string            `json:"type" binding:"required,oneof=entry exit"`
	ReceiptDate    string            `json:"receipt_date" binding:"required"`
	Notes          *string           `json:"notes"`
	VATRate        *decimal.Decimal  `json:"vat_rate" swaggertype:"number"`
	IsInvoice      bool              `json:"is_invoice"`
	Items          []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ReceiptResponse struct {
	ID            string             `json:"id"`
	Reference     string             `json:"reference"`
	Type          string             `json:"type"`
	ReceiptDate   string             `json:"receipt_date"`
	Status        string             `json:"status"`
	Notes         *string            `json:"notes"`
	VATRate       decimal.Decimal    `json:"vat_rate" swaggertype:"number"`
	Subtotal      decimal.Decimal    `json:"subtotal" swaggertype:"number"`
	VATAmount     decimal.Decimal    `json:"vat_amount" swaggertype:"number"`
	TotalAmount   decimal.Decimal    `json:"total_amount" swaggertype:"number"`
	IsInvoice     bool               `json:"is_invoice"`
	InvoiceNumber *string            `json:"invoice_number"`
	CreatedBy     string             `json:"created_by"`
	Items         []LineItemResponse `json:"items"`
	CreatedAt     string             `json:"created_at"`
}

// ReceiptList is a page of receipts. Available is false when receipts are not provisioned.
type ReceiptList struct {
	Receipts  []ReceiptResponse `json:"receipts"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
	Available bool              `json:"available"`
}

type ReceiptService interface {
	GetReceipts(ctx context.Context, t Tenant, receiptType string, page, limit int) (ReceiptList, error)
	GetReceipt(ctx context.Context, t Tenant, id string) (ReceiptResponse, error)
	CreateReceipt(ctx context.Context, t Tenant, req CreateReceiptRequest) (ReceiptResponse, error)
	DeleteReceipt(ctx context.Context, t Tenant, id string) error
	InvoicePDF(ctx context.Context, t Tenant, id string) (filename string, pdf []byte, err error)
}

type receiptService struct {
	receiptRepo repository.ReceiptRepository
	productRepo repository.ProductRepository
	seqRepo     repository.SequenceRepository
	orgRepo     repository.OrganizationRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	tenant      TenantService
	ledger      *stockLedger
	defaultVAT  decimal.Decimal
}

func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	seqRepo repository.SequenceRepository,
	orgRepo repository.OrganizationRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tenant TenantService,
	settings LedgerSettings,
	defaultVAT decimal.Decimal,
	publisher StockEventPublisher,
) ReceiptService {
	return &receiptService{
		receiptRepo: receiptRepo,
		productRepo: productRepo,
		seqRepo:     seqRepo,
		orgRepo:     orgRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		tenant:      tenant,
		ledger:      newStockLedger(productRepo, movementRepo, settings, publisher),
		defaultVAT:  defaultVAT,
	}
}

var hundred = decimal.NewFromInt(100)

// ComputeAmounts returns subtotal, VAT (rounded to cents) and total for the items.
func ComputeAmounts(items []model.ReceiptItem, vatRate decimal.Decimal) (subtotal, vat, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	vat = subtotal.Mul(vatRate).Div(hundred).Round(2)
	total = subtotal.Add(vat)
	return subtotal, vat, total
}

func toReceiptResponse(r *model.Receipt) ReceiptResponse {
	items := make([]LineItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
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
	return ReceiptResponse{
		ID:            r.ID.String(),
		Reference:     r.Reference,
		Type:          string(r.Type),
		ReceiptDate:   r.ReceiptDate.Format(dateLayout),
		Status:        r.Status,
		Notes:         r.Notes,
		VATRate:       r.VATRate,
		Subtotal:      r.Subtotal,
		VATAmount:     r.VATAmount,
		TotalAmount:   r.TotalAmount,
		IsInvoice:     r.IsInvoice,
		InvoiceNumber: r.InvoiceNumber,
		CreatedBy:     r.CreatedBy.String(),
		Items:         items,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}

func (s *receiptService) GetReceipts(ctx context.Context, t Tenant, receiptType string, page, limit int) (ReceiptList, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return ReceiptList{}, err
	}
	if receiptType != "" && !model.ReceiptType(receiptType).Valid() {
		return ReceiptList{}, invalid("type must be one of [entry exit]")
	}
	pg := pagination.New(page, limit)
	page, limit = pg.Page, pg.Limit

	list := ReceiptList{Receipts: []ReceiptResponse{}, Page: page, Limit: limit, Available: true}
	receipts, total, err := s.receiptRepo.List(ctx, orgID, receiptType, page, limit)
	if err != nil {
		if repository.IsUndefinedTable(err) {
			list.Available = false
			return list, nil
		}
		return ReceiptList{}, fmt.Errorf("failed to list receipts: %w", err)
	}
	for i := range receipts {
		list.Receipts = append(list.Receipts, toReceiptResponse(&receipts[i]))
	}
	list.Total = total
	return list, nil
}

func (s *receiptService) GetReceipt(ctx context.Context, t Tenant, id string) (ReceiptResponse, error) {
	receipt, err := s.loadOwned(ctx, t, id, true)
	if err != nil {
		return ReceiptResponse{}, err
	}
	return toReceiptResponse(receipt), nil
}

func (s *receiptService) loadOwned(ctx context.Context, t Tenant, id string, withItems bool) (*model.Receipt, error) {
	if _, err := s.tenant.RequireOrganization(t); err != nil {
		return nil, err
	}
	receiptID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid receipt id")
	}
	var receipt *model.Receipt
	if withItems {
		receipt, err = s.receiptRepo.FindByIDWithItems(ctx, receiptID)
	} else {
		receipt, err = s.receiptRepo.FindByID(ctx, receiptID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("receipt", receiptID)
		}
		if repository.IsUndefinedTable(err) {
			return nil, unavailable("receipts", err)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if err := s.tenant.AuthorizeResource(t, receipt.OrganizationID); err != nil {
		return nil, err
	}
	return receipt, nil
}

// CreateReceipt records a stock entry or exit with computed amounts and numbering.
func (s *receiptService) CreateReceipt(ctx context.Context, t Tenant, req CreateReceiptRequest) (ReceiptResponse, error) {
	if err := validateRequest(req); err != nil {
		return ReceiptResponse{}, err
	}
	orgID, err := requireInventoryOrg(s.tenant, t, req.OrganizationID)
	if err != nil {
		return ReceiptResponse{}, err
	}
	receiptType := model.ReceiptType(req.Type)
	receiptDate, err := parseDate("receipt_date", req.ReceiptDate)
	if err != nil {
		return ReceiptResponse{}, err
	}
	vatRate := s.defaultVAT
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(hundred) {
		return ReceiptResponse{}, invalid("vat_rate must be between 0 and 100")
	}
	lines, err := parseLines(req.Items)
	if err != nil {
		return ReceiptResponse{}, err
	}

	totals, order := demand(lines)
	products, err := loadOwnedProducts(ctx, s.productRepo, orgID, order)
	if err != nil {
		return ReceiptResponse{}, err
	}
	if receiptType == model.ReceiptExit {
		if err := checkAvailability(products, totals, order); err != nil {
			return ReceiptResponse{}, err
		}
	}

	receipt := model.Receipt{
		OrganizationID: orgID,
		Type:           receiptType,
		ReceiptDate:    receiptDate,
		Status:         model.ReceiptStatusCompleted,
		Notes:          trimOptional(req.Notes),
		VATRate:        vatRate,
		IsInvoice:      req.IsInvoice,
		CreatedBy:      t.ProfileID,
	}
	for _, it := range req.Items {
		receipt.Items = append(receipt.Items, model.ReceiptItem{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	receipt.Subtotal, receipt.VATAmount, receipt.TotalAmount = ComputeAmounts(receipt.Items, vatRate)

	year := receiptDate.Year()
	action := model.ActionCreateReceiptEntry
	if receiptType == model.ReceiptExit {
		action = model.ActionCreateReceiptExit
	}

	var changed []*model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ref, err := s.nextNumber(txCtx, orgID, "receipt:"+string(receiptType), receiptType.Prefix(), year, s.receiptRepo.CountReferencePrefix)
		if err != nil {
			return fmt.Errorf("failed to generate reference: %w", err)
		}
		receipt.Reference = ref

		if receipt.IsInvoice {
			number, err := s.nextNumber(txCtx, orgID, "invoice", model.InvoicePrefix, year, s.receiptRepo.CountInvoicePrefix)
			if err != nil {
				return fmt.Errorf("failed to generate invoice number: %w", err)
			}
			receipt.InvoiceNumber = &number
		}

		if err := s.receiptRepo.Create(txCtx, &receipt); err != nil {
			if repository.IsUndefinedTable(err) {
				return unavailable("receipts", err)
			}
			return fmt.Errorf("failed to create receipt: %w", err)
		}

		sign := receiptType.Sign()
		for _, productID := range order {
			p, err := s.ledger.apply(txCtx, orgID, productID, sign*totals[productID], model.SourceReceipt, receipt.ID)
			if err != nil {
				return err
			}
			changed = append(changed, p)
		}
		return writeAudit(txCtx, s.auditRepo, t, action, receipt.ID.String(), receipt.Reference, req)
	})
	if err != nil {
		return ReceiptResponse{}, err
	}

	s.ledger.publish(orgID, changed)

	for i := range receipt.Items {
		p := products[receipt.Items[i].ProductID]
		receipt.Items[i].Product = &p
	}
	return toReceiptResponse(&receipt), nil
}

// nextNumber formats {prefix}-{year}-{NNNN} from the atomic counter, falling back to
// counting existing documents when the counter table is not provisioned.
func (s *receiptService) nextNumber(
	ctx context.Context,
	orgID uuid.UUID,
	scope, prefix string,
	year int,
	count func(ctx context.Context, orgID uuid.UUID, prefix string) (int64, error),
) (string, error) {
	head := fmt.Sprintf("%s-%d-", prefix, year)
	n, err := s.seqRepo.Next(ctx, orgID, scope, year)
	if err != nil {
		if !repository.IsUndefinedTable(err) {
			return "", err
		}
		existing, err := count(ctx, orgID, head)
		if err != nil {
			return "", err
		}
		n = existing + 1
	}
	return fmt.Sprintf("%s%04d", head, n), nil
}

// DeleteReceipt removes a receipt and reverses its stock effect. Reversing an entry
// whose stock was already consumed fails instead of clamping at zero.
func (s *receiptService) DeleteReceipt(ctx context.Context, t Tenant, id string) error {
	receipt, err := s.loadOwned(ctx, t, id, false)
	if err != nil {
		return err
	}
	if err := s.tenant.RequireCapability(t, model.CapManageInventory); err != nil {
		return err
	}

	var changed []*model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		full, err := s.receiptRepo.FindByIDWithItems(txCtx, receipt.ID)
		if err != nil {
			return fmt.Errorf("failed to load receipt items: %w", err)
		}

		if full.Status == model.ReceiptStatusCompleted {
			lines := make([]lineInput, 0, len(full.Items))
			for _, it := range full.Items {
				lines = append(lines, lineInput{productID: it.ProductID, quantity: it.Quantity})
			}
			totals, order := demand(lines)
			sign := -full.Type.Sign()
			for _, productID := range order {
				p, err := s.ledger.apply(txCtx, full.OrganizationID, productID, sign*totals[productID], model.SourceReceipt, full.ID)
				if err != nil {
					var stockErr *InsufficientStockError
					if errors.As(err, &stockErr) {
						return invalid("cannot delete receipt %s: reversing it would make the stock of %s negative (available %d, needed %d)",
							full.Reference, stockErr.ProductName, stockErr.Available, stockErr.Requested)
					}
					return err
				}
				changed = append(changed, p)
			}
		}

		if err := s.receiptRepo.Delete(txCtx, full.ID); err != nil {
			return fmt.Errorf("failed to delete receipt: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionDeleteReceipt, full.ID.String(), full.Reference, map[string]string{"type": string(full.Type)})
	})
	if err != nil {
		return err
	}

	s.ledger.publish(receipt.OrganizationID, changed)
	return nil
}

// InvoicePDF renders the receipt, or invoice when it carries an invoice number.
func (s *receiptService) InvoicePDF(ctx context.Context, t Tenant, id string) (string, []byte, error) {
	receipt, err := s.loadOwned(ctx, t, id, true)
	if err != nil {
		return "", nil, err
	}
	org, err := s.orgRepo.FindByID(ctx, receipt.OrganizationID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load organization: %w", err)
	}
	pdf, err := export.InvoicePDF(org, receipt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	number := receipt.Reference
	if receipt.InvoiceNumber != nil {
		number = *receipt.InvoiceNumber
	}
	return number + ".pdf", pdf, nil
}
