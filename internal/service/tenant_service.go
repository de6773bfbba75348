package service

import (
	"context"
	"errors"
	"fmt"

	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is the resolved identity of a caller: who they are, which organization
// they act for, and with which role.
type Tenant struct {
	ProfileID      uuid.UUID
	OrganizationID *uuid.UUID
	Role           model.Role
}

// OrgID returns the organization id or uuid.Nil when the caller has none.
func (t Tenant) OrgID() uuid.UUID {
	if t.OrganizationID == nil {
		return uuid.Nil
	}
	return *t.OrganizationID
}

// TenantService resolves callers and answers every authorization question.
type TenantService interface {
	Resolve(ctx context.Context, principalID string) (Tenant, error)
	RequireOrganization(t Tenant) (uuid.UUID, error)
	AuthorizeResource(t Tenant, resourceOrgID uuid.UUID) error
	RequireCapability(t Tenant, c model.Capability) error
}

type tenantService struct {
	profileRepo repository.ProfileRepository
}

func NewTenantService(profileRepo repository.ProfileRepository) TenantService {
	return &tenantService{profileRepo: profileRepo}
}

func (s *tenantService) Resolve(ctx context.Context, principalID string) (Tenant, error) {
	id, err := uuid.Parse(principalID)
	if err != nil {
		return Tenant{}, forbidden("invalid session")
	}
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Tenant{}, forbidden("profile not found")
		}
		return Tenant{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return Tenant{ProfileID: profile.ID, OrganizationID: profile.OrganizationID, Role: profile.Role}, nil
}

// RequireOrganization fails closed when the caller has not joined an organization.
func (s *tenantService) RequireOrganization(t Tenant) (uuid.UUID, error) {
	if t.OrganizationID == nil || *t.OrganizationID == uuid.Nil {
		return uuid.Nil, forbidden("no organization associated with this account")
	}
	return *t.OrganizationID, nil
}

func (s *tenantService) AuthorizeResource(t Tenant, resourceOrgID uuid.UUID) error {
	orgID, err := s.RequireOrganization(t)
	if err != nil {
		return err
	}
	if orgID != resourceOrgID {
		return forbidden("unauthorized for this organization")
	}
	return nil
}

func (s *tenantService) RequireCapability(t Tenant, c model.Capability) error {
	if !t.Role.Can(c) {
		return forbidden(fmt.Sprintf("role %q is not allowed to %s", t.Role, capabilityVerb(c)))
	}
	return nil
}

func capabilityVerb(c model.Capability) string {
	switch c {
	case model.CapManageUsers:
		return "manage users"
	case model.CapEditOrganization:
		return "edit the organization"
	case model.CapViewAuditLog:
		return "view the audit log"
	case model.CapViewReports:
		return "view reports"
	default:
		return "manage inventory"
	}
}

// requireInventoryOrg is the common guard of inventory mutations: the caller needs an
// organization, the inventory capability, and (when given) must target its own organization.
func requireInventoryOrg(g TenantService, t Tenant, requestedOrg string) (uuid.UUID, error) {
	orgID, err := g.RequireOrganization(t)
	if err != nil {
		return uuid.Nil, err
	}
	if err := g.RequireCapability(t, model.CapManageInventory); err != nil {
		return uuid.Nil, err
	}
	if requestedOrg != "" {
		reqID, err := uuid.Parse(requestedOrg)
		if err != nil || reqID != orgID {
			return uuid.Nil, forbidden("unauthorized for this organization")
		}
	}
	return orgID, nil
}
