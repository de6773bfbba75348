package repository

import (
	"context"

	"stockino/internal/model"
	"stockino/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log appends an entry. Inside RunInTx it commits or rolls back with the mutation.
func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// List returns an organization's entries newest first with the acting profile loaded.
func (r *auditRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.AuditLog, int64, error) {
	scope := GetDB(ctx, r.db).Model(&model.AuditLog{}).Where("organization_id = ?", orgID)

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pg := pagination.New(page, limit)
	logs := make([]model.AuditLog, 0, pg.Limit)
	err := scope.Session(&gorm.Session{}).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "email") }).
		Order("created_at desc, id").
		Offset(pg.Offset()).
		Limit(pg.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
