package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrganizationCodeAlphabet excludes characters that are easy to misread (0/O, 1/I).
const (
	OrganizationCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	OrganizationCodeLength   = 6
)

// Organization is the tenant. Code is generated once and never changes.
type Organization struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string            `gorm:"type:varchar(80);not null" json:"name"`
	Code      string            `gorm:"type:varchar(6);uniqueIndex;not null" json:"code"`
	Settings  datatypes.JSONMap `gorm:"type:jsonb" json:"settings"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ContactEmail returns settings.contact_email or "".
func (o *Organization) ContactEmail() string {
	if o.Settings == nil {
		return ""
	}
	email, _ := o.Settings["contact_email"].(string)
	return email
}
