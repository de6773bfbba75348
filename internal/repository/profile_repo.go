package repository

import (
	"context"
	"strings"

	"stockino/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository defines data access for profiles (principals and their membership).
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new instance of ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail matches case-insensitively; emails are stored lower-cased.
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).First(&profile, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := GetDB(ctx, r.db).Where("organization_id = ?", orgID).Order("created_at asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Save(profile).Error
}

func (r *profileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Profile{}).Error
}
