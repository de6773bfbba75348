package repository

import (
	"context"

	"stockino/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	Update(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	FindByCode(ctx context.Context, code string) (*model.Organization, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Create(org).Error
}

// Update never touches the code column.
func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Model(org).Select("name", "settings", "updated_at").Updates(org).Error
}

func (r *organizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := GetDB(ctx, r.db).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) FindByCode(ctx context.Context, code string) (*model.Organization, error) {
	var org model.Organization
	if err := GetDB(ctx, r.db).First(&org, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Organization{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
