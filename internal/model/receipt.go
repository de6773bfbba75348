package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceiptType is the direction of a stock receipt.
type ReceiptType string

const (
	ReceiptEntry ReceiptType = "entry"
	ReceiptExit  ReceiptType = "exit"
)

// Valid reports whether t is entry or exit.
func (t ReceiptType) Valid() bool {
	return t == ReceiptEntry || t == ReceiptExit
}

// Prefix is the reference prefix for the receipt type.
func (t ReceiptType) Prefix() string {
	if t == ReceiptExit {
		return "SOR"
	}
	return "ENT"
}

// Sign is +1 for entries and -1 for exits.
func (t ReceiptType) Sign() int {
	if t == ReceiptExit {
		return -1
	}
	return 1
}

const (
	ReceiptStatusCompleted = "completed"
	InvoicePrefix          = "FAC"
)

// Receipt records a stock entry or exit, optionally issued as an invoice.
type Receipt struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	Reference      string          `gorm:"type:varchar(30);not null;index" json:"reference"`
	Type           ReceiptType     `gorm:"type:varchar(10);not null;index" json:"type"`
	ReceiptDate    time.Time       `gorm:"type:date;not null" json:"receipt_date"`
	Status         string          `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	Notes          *string         `gorm:"type:text" json:"notes"`
	VATRate        decimal.Decimal `gorm:"column:vat_rate;type:decimal(5,2);not null" json:"vat_rate"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	VATAmount      decimal.Decimal `gorm:"column:vat_amount;type:decimal(18,2);not null" json:"vat_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	IsInvoice      bool            `gorm:"not null;default:false" json:"is_invoice"`
	InvoiceNumber  *string         `gorm:"type:varchar(30);index" json:"invoice_number"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid;not null" json:"created_by"`
	Items          []ReceiptItem   `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReceiptItem is one line of a receipt.
type ReceiptItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID uuid.UUID       `gorm:"type:uuid;not null;index" json:"receipt_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
}

func (i *ReceiptItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal is quantity × unit price.
func (i ReceiptItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
