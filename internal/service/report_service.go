package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockino/internal/export"
	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Export formats
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ExportFile is a rendered report ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ReportService interface {
	StockReport(ctx context.Context, t Tenant) (model.StockReport, error)
	SalesReport(ctx context.Context, t Tenant, startDate, endDate string) (model.SalesReport, error)
	Dashboard(ctx context.Context, t Tenant, now time.Time) (model.Dashboard, error)
	ExportStockReport(ctx context.Context, t Tenant, format string) (ExportFile, error)
	ExportSalesReport(ctx context.Context, t Tenant, startDate, endDate, format string) (ExportFile, error)
}

type reportService struct {
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
	reportRepo  repository.ReportRepository
	orgRepo     repository.OrganizationRepository
	tenant      TenantService
}

func NewReportService(
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	reportRepo repository.ReportRepository,
	orgRepo repository.OrganizationRepository,
	tenant TenantService,
) ReportService {
	return &reportService{
		productRepo: productRepo,
		saleRepo:    saleRepo,
		reportRepo:  reportRepo,
		orgRepo:     orgRepo,
		tenant:      tenant,
	}
}

func (s *reportService) authorize(t Tenant) (uuid.UUID, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.tenant.RequireCapability(t, model.CapViewReports); err != nil {
		return uuid.Nil, err
	}
	return orgID, nil
}

func (s *reportService) organizationName(ctx context.Context, orgID uuid.UUID) string {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return ""
	}
	return org.Name
}

// StockReport lists every product by name with its stock value and the inventory totals.
func (s *reportService) StockReport(ctx context.Context, t Tenant) (model.StockReport, error) {
	orgID, err := s.authorize(t)
	if err != nil {
		return model.StockReport{}, err
	}

	products, err := s.productRepo.ListAll(ctx, orgID)
	if err != nil {
		return model.StockReport{}, fmt.Errorf("failed to load products: %w", err)
	}

	report := model.StockReport{
		OrganizationName: s.organizationName(ctx, orgID),
		GeneratedAt:      time.Now().UTC(),
		Products:         make([]model.StockReportLine, 0, len(products)),
		TotalValue:       decimal.Zero,
	}
	for i := range products {
		p := &products[i]
		value := p.StockValue()
		report.Products = append(report.Products, model.StockReportLine{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Quantity:  p.Quantity,
			Price:     p.Price,
			Status:    p.Status,
			Value:     value,
		})
		report.TotalQuantity += p.Quantity
		report.TotalValue = report.TotalValue.Add(value)
		switch p.Status {
		case model.StatusOutOfStock:
			report.OutOfStockCount++
		case model.StatusLowStock:
			report.LowStockCount++
		}
	}
	report.TotalProducts = len(products)
	return report, nil
}

// SalesReport lists the sales of the inclusive date range. A store without the
// sales tables yields an empty report flagged unavailable, not an error.
func (s *reportService) SalesReport(ctx context.Context, t Tenant, startDate, endDate string) (model.SalesReport, error) {
	orgID, err := s.authorize(t)
	if err != nil {
		return model.SalesReport{}, err
	}
	start, err := parseDate("start_date", startDate)
	if err != nil {
		return model.SalesReport{}, err
	}
	end, err := parseDate("end_date", endDate)
	if err != nil {
		return model.SalesReport{}, err
	}
	if start.After(end) {
		return model.SalesReport{}, invalid("start_date must not be after end_date")
	}

	report := model.SalesReport{
		OrganizationName: s.organizationName(ctx, orgID),
		StartDate:        start,
		EndDate:          end,
		Sales:            []model.SalesReportLine{},
		TotalAmount:      decimal.Zero,
		AverageSale:      decimal.Zero,
		Available:        true,
	}

	sales, err := s.saleRepo.ListBetween(ctx, orgID, start, end)
	if err != nil {
		if repository.IsUndefinedTable(err) {
			report.Available = false
			return report, nil
		}
		return model.SalesReport{}, fmt.Errorf("failed to load sales: %w", err)
	}

	for _, sale := range sales {
		report.Sales = append(report.Sales, model.SalesReportLine{
			SaleID:      sale.ID,
			Reference:   SaleReference(sale),
			SaleDate:    sale.SaleDate,
			ItemsCount:  len(sale.Items),
			TotalAmount: sale.TotalAmount,
		})
		report.TotalAmount = report.TotalAmount.Add(sale.TotalAmount)
	}
	report.TotalSales = len(sales)
	if report.TotalSales > 0 {
		report.AverageSale = report.TotalAmount.Div(decimal.NewFromInt(int64(report.TotalSales))).Round(2)
	}
	return report, nil
}

// SaleReference is the display reference VTE-{date}-{first 8 chars of id}.
func SaleReference(sale model.Sale) string {
	return fmt.Sprintf("VTE-%s-%s", sale.SaleDate.Format(dateLayout), sale.ID.String()[:8])
}

// Dashboard summarizes stock and sales as of now.
func (s *reportService) Dashboard(ctx context.Context, t Tenant, now time.Time) (model.Dashboard, error) {
	orgID, err := s.authorize(t)
	if err != nil {
		return model.Dashboard{}, err
	}

	totals, err := s.reportRepo.InventoryTotals(ctx, orgID)
	if err != nil {
		return model.Dashboard{}, err
	}
	lowStock, err := s.productRepo.ListLowStock(ctx, orgID, 5)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("failed to load low stock products: %w", err)
	}

	dash := model.Dashboard{
		TotalProducts:    totals.Products,
		TotalQuantity:    totals.Quantity,
		StockValue:       totals.Value,
		LowStockCount:    totals.LowStock,
		OutOfStockCount:  totals.OutOfStock,
		Today:            model.SalesSummary{Amount: decimal.Zero},
		ThisMonth:        model.SalesSummary{Amount: decimal.Zero},
		RecentSales:      []model.Sale{},
		LowStockProducts: lowStock,
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	if dash.Today, err = s.reportRepo.SalesSummary(ctx, orgID, today, today); err != nil {
		if repository.IsUndefinedTable(err) {
			return dash, nil
		}
		return model.Dashboard{}, fmt.Errorf("failed to summarize sales: %w", err)
	}
	if dash.ThisMonth, err = s.reportRepo.SalesSummary(ctx, orgID, monthStart, today); err != nil {
		return model.Dashboard{}, fmt.Errorf("failed to summarize sales: %w", err)
	}
	if dash.RecentSales, err = s.saleRepo.ListRecent(ctx, orgID, 5); err != nil {
		return model.Dashboard{}, fmt.Errorf("failed to load recent sales: %w", err)
	}
	return dash, nil
}

func (s *reportService) ExportStockReport(ctx context.Context, t Tenant, format string) (ExportFile, error) {
	report, err := s.StockReport(ctx, t)
	if err != nil {
		return ExportFile{}, err
	}
	stamp := report.GeneratedAt.Format("2006-01-02")
	switch strings.ToLower(format) {
	case FormatXLSX, "":
		data, err := export.StockReportXLSX(report)
		if err != nil {
			return ExportFile{}, fmt.Errorf("failed to render stock report: %w", err)
		}
		return ExportFile{Filename: "stock-report-" + stamp + ".xlsx", ContentType: export.ContentTypeXLSX, Data: data}, nil
	case FormatPDF:
		data, err := export.StockReportPDF(report)
		if err != nil {
			return ExportFile{}, fmt.Errorf("failed to render stock report: %w", err)
		}
		return ExportFile{Filename: "stock-report-" + stamp + ".pdf", ContentType: export.ContentTypePDF, Data: data}, nil
	default:
		return ExportFile{}, invalid("format must be one of [xlsx pdf]")
	}
}

func (s *reportService) ExportSalesReport(ctx context.Context, t Tenant, startDate, endDate, format string) (ExportFile, error) {
	report, err := s.SalesReport(ctx, t, startDate, endDate)
	if err != nil {
		return ExportFile{}, err
	}
	name := fmt.Sprintf("sales-report-%s-%s", report.StartDate.Format(dateLayout), report.EndDate.Format(dateLayout))
	switch strings.ToLower(format) {
	case FormatXLSX, "":
		data, err := export.SalesReportXLSX(report)
		if err != nil {
			return ExportFile{}, fmt.Errorf("failed to render sales report: %w", err)
		}
		return ExportFile{Filename: name + ".xlsx", ContentType: export.ContentTypeXLSX, Data: data}, nil
	case FormatPDF:
		data, err := export.SalesReportPDF(report)
		if err != nil {
			return ExportFile{}, fmt.Errorf("failed to render sales report: %w", err)
		}
		return ExportFile{Filename: name + ".pdf", ContentType: export.ContentTypePDF, Data: data}, nil
	default:
		return ExportFile{}, invalid("format must be one of [xlsx pdf]")
	}
}
