package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockReportLine is one product row of the stock report.
type StockReportLine struct {
	ProductID uuid.UUID        `json:"product_id"`
	Name      string           `json:"name"`
	Category  *string          `json:"category"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Status    ProductStatus    `json:"status"`
	Value     decimal.Decimal  `json:"value"`
}

// StockReport aggregates the current inventory of an organization.
type StockReport struct {
	OrganizationName string            `json:"organization_name"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Products         []StockReportLine `json:"products"`
	TotalProducts    int               `json:"total_products"`
	TotalQuantity    int               `json:"total_quantity"`
	TotalValue       decimal.Decimal   `json:"total_value"`
	OutOfStockCount  int               `json:"out_of_stock_count"`
	LowStockCount    int               `json:"low_stock_count"`
}

// SalesReportLine is one sale of the sales report.
type SalesReportLine struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	Reference   string          `json:"reference"`
	SaleDate    time.Time       `json:"sale_date"`
	ItemsCount  int             `json:"items_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SalesReport aggregates sales over an inclusive date range.
// Available is false when the sales tables are not provisioned.
type SalesReport struct {
	OrganizationName string            `json:"organization_name"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date"`
	Sales            []SalesReportLine `json:"sales"`
	TotalSales       int               `json:"total_sales"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	AverageSale      decimal.Decimal   `json:"average_sale"`
	Available        bool              `json:"available"`
}

// SalesSummary is a count and amount for a period.
type SalesSummary struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Dashboard is the landing overview of an organization.
type Dashboard struct {
	TotalProducts    int             `json:"total_products"`
	TotalQuantity    int             `json:"total_quantity"`
	StockValue       decimal.Decimal `json:"stock_value"`
	LowStockCount    int             `json:"low_stock_count"`
	OutOfStockCount  int             `json:"out_of_stock_count"`
	Today            SalesSummary    `json:"today"`
	ThisMonth        SalesSummary    `json:"this_month"`
	RecentSales      []Sale          `json:"recent_sales"`
	LowStockProducts []Product       `json:"low_stock_products"`
}
