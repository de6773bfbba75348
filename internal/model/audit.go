package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateProduct      = "CREATE_PRODUCT"
	ActionUpdateProduct      = "UPDATE_PRODUCT"
	ActionDeleteProduct      = "DELETE_PRODUCT"
	ActionCreateSale         = "CREATE_SALE"
	ActionDeleteSale         = "DELETE_SALE"
	ActionCreateReceiptEntry = "CREATE_RECEIPT_ENTRY"
	ActionCreateReceiptExit  = "CREATE_RECEIPT_EXIT"
	ActionDeleteReceipt      = "DELETE_RECEIPT"

	// Organization and team actions
	ActionUpsertOrganization = "UPSERT_ORGANIZATION"
	ActionInviteMember       = "INVITE_MEMBER"
	ActionUpdateMemberRole   = "UPDATE_MEMBER_ROLE"
	ActionRemoveMember       = "REMOVE_MEMBER"
)

// AuditLog tracks who changed what, and when, inside an organization.
type AuditLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID *uuid.UUID     `gorm:"type:uuid;index" json:"organization_id"`
	UserID         *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	User           *Profile       `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Action         string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID       string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName     string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details        datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
