package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxCodeAttempts = 10

// DTOs
type UpsertOrganizationRequest struct {
	Name         string  `json:"name" binding:"required,min=2,max=80"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
}

type OrganizationResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	ContactEmail string `json:"contact_email,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type OrganizationService interface {
	GetOrganization(ctx context.Context, t Tenant) (OrganizationResponse, error)
	UpsertOrganization(ctx context.Context, t Tenant, req UpsertOrganizationRequest) (OrganizationResponse, error)
}

type organizationService struct {
	orgRepo     repository.OrganizationRepository
	profileRepo repository.ProfileRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	tenant      TenantService
	newCode     func() (string, error)
}

func NewOrganizationService(
	orgRepo repository.OrganizationRepository,
	profileRepo repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tenant TenantService,
) OrganizationService {
	return &organizationService{
		orgRepo:     orgRepo,
		profileRepo: profileRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		tenant:      tenant,
		newCode:     RandomOrganizationCode,
	}
}

// RandomOrganizationCode draws a code from the unambiguous alphabet.
func RandomOrganizationCode() (string, error) {
	var b strings.Builder
	alphabetLen := big.NewInt(int64(len(model.OrganizationCodeAlphabet)))
	for i := 0; i < model.OrganizationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b.WriteByte(model.OrganizationCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func toOrganizationResponse(org *model.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:           org.ID.String(),
		Name:         org.Name,
		Code:         org.Code,
		ContactEmail: org.ContactEmail(),
		CreatedAt:    org.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    org.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *organizationService) GetOrganization(ctx context.Context, t Tenant) (OrganizationResponse, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return OrganizationResponse{}, err
	}
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrganizationResponse{}, notFound("organization", orgID)
		}
		return OrganizationResponse{}, fmt.Errorf("failed to load organization: %w", err)
	}
	return toOrganizationResponse(org), nil
}

// UpsertOrganization updates the caller's organization (admins only) or, for a
// caller without one, creates it and makes the caller its admin.
func (s *organizationService) UpsertOrganization(ctx context.Context, t Tenant, req UpsertOrganizationRequest) (OrganizationResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return OrganizationResponse{}, err
	}
	contact := trimOptional(req.ContactEmail)

	if t.OrganizationID != nil {
		return s.update(ctx, t, req.Name, contact)
	}

	var org *model.Organization
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.profileRepo.GetByID(txCtx, t.ProfileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return forbidden("profile not found")
			}
			return fmt.Errorf("failed to load profile: %w", err)
		}
		if profile.OrganizationID != nil {
			return forbidden("account already belongs to an organization")
		}

		org, err = s.create(txCtx, req.Name, contact)
		if err != nil {
			return err
		}

		profile.OrganizationID = &org.ID
		profile.Role = model.RoleAdmin
		if err := s.profileRepo.Update(txCtx, profile); err != nil {
			return fmt.Errorf("failed to attach profile: %w", err)
		}

		member := Tenant{ProfileID: profile.ID, OrganizationID: &org.ID, Role: model.RoleAdmin}
		return writeAudit(txCtx, s.auditRepo, member, model.ActionUpsertOrganization, org.ID.String(), org.Name, req)
	})
	if err != nil {
		return OrganizationResponse{}, err
	}
	return toOrganizationResponse(org), nil
}

func (s *organizationService) update(ctx context.Context, t Tenant, name string, contact *string) (OrganizationResponse, error) {
	if err := s.tenant.RequireCapability(t, model.CapEditOrganization); err != nil {
		return OrganizationResponse{}, err
	}
	org, err := s.orgRepo.FindByID(ctx, *t.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrganizationResponse{}, notFound("organization", *t.OrganizationID)
		}
		return OrganizationResponse{}, fmt.Errorf("failed to load organization: %w", err)
	}

	org.Name = name
	org.Settings = withContactEmail(org.Settings, contact)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orgRepo.Update(txCtx, org); err != nil {
			return fmt.Errorf("failed to update organization: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionUpsertOrganization, org.ID.String(), org.Name, map[string]interface{}{"name": name, "contact_email": contact})
	})
	if err != nil {
		return OrganizationResponse{}, err
	}
	return toOrganizationResponse(org), nil
}

// create inserts an organization with a fresh unique code. Must run in a transaction.
func (s *organizationService) create(ctx context.Context, name string, contact *string) (*model.Organization, error) {
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	org := &model.Organization{
		ID:       uuid.New(),
		Name:     name,
		Code:     code,
		Settings: withContactEmail(nil, contact),
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate organization code: %w", err)
		}
		exists, err := s.orgRepo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check organization code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", unavailable("organization code generation", errors.New("no unique code after retries"))
}

func withContactEmail(settings datatypes.JSONMap, contact *string) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range settings {
		out[k] = v
	}
	if contact == nil {
		delete(out, "contact_email")
	} else {
		out["contact_email"] = strings.ToLower(*contact)
	}
	return out
}
