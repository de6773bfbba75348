package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStatus is the stock tier shown for a product.
type ProductStatus string

const (
	StatusInStock    ProductStatus = "in_stock"
	StatusLowStock   ProductStatus = "low_stock"
	StatusOutOfStock ProductStatus = "out_of_stock"
	StatusArchived   ProductStatus = "archived"
)

// DefaultLowStockThreshold is the quantity below which a product is low on stock.
const DefaultLowStockThreshold = 10

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOutOfStock, StatusArchived:
		return true
	}
	return false
}

// DeriveStatus maps a quantity to its stock tier.
func DeriveStatus(quantity, lowStockThreshold int) ProductStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity < lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Product is an inventory item owned by one organization.
type Product struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string           `gorm:"type:varchar(255);not null" json:"name"`
	Category       *string          `gorm:"type:varchar(255)" json:"category"`
	Description    *string          `gorm:"type:text" json:"description"`
	Price          *decimal.Decimal `gorm:"type:decimal(18,2)" json:"price"`
	Quantity       int              `gorm:"type:int;not null;default:0;check:quantity >= 0" json:"quantity"`
	Status         ProductStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	ImageURL       *string          `gorm:"type:text" json:"image_url"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StockValue is price × quantity, with a missing price counting as zero.
func (p *Product) StockValue() decimal.Decimal {
	if p.Price == nil {
		return decimal.Zero
	}
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
