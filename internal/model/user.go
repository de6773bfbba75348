package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is an authenticated principal and its membership in an organization.
// OrganizationID stays nil until the user creates or joins one.
type Profile struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID *uuid.UUID    `gorm:"type:uuid;index" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Email          string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName       *string       `gorm:"type:varchar(255)" json:"full_name"`
	Role           Role          `gorm:"type:varchar(20);not null;default:'operator'" json:"role"`
	AvatarURL      *string       `gorm:"type:text" json:"avatar_url"`
	PasswordHash   string        `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
