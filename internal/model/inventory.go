package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Movement sources and directions
const (
	SourceSale       = "sale"
	SourceReceipt    = "receipt"
	SourceAdjustment = "adjustment"

	DirectionIn  = "in"
	DirectionOut = "out"
)

// StockMovement is the stock card: one row per quantity change applied to a product.
type StockMovement struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	SourceType      string    `gorm:"type:varchar(20);not null" json:"source_type"`
	SourceID        uuid.UUID `gorm:"type:uuid;not null;index" json:"source_id"`
	Direction       string    `gorm:"type:varchar(5);not null" json:"direction"`
	QuantityChanged int       `gorm:"type:int;not null" json:"quantity_changed"` // signed
	StockAfter      int       `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time `json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// DocumentSequence is the per-organization, per-scope, per-year counter behind
// receipt references and invoice numbers.
type DocumentSequence struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Scope          string    `gorm:"type:varchar(30);primaryKey"`
	Year           int       `gorm:"primaryKey;autoIncrement:false"`
	Value          int64     `gorm:"not null;default:0"`
}
