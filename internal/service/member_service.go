package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs
type InviteMemberRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	FullName *string `json:"full_name" binding:"omitempty,max=255"`
	Role     string  `json:"role" binding:"required,oneof=admin manager operator"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin manager operator"`
}

// ProfileResponse never exposes the password hash.
type ProfileResponse struct {
	ID             string  `json:"id"`
	OrganizationID *string `json:"organization_id"`
	Email          string  `json:"email"`
	FullName       *string `json:"full_name"`
	Role           string  `json:"role"`
	AvatarURL      *string `json:"avatar_url"`
	CreatedAt      string  `json:"created_at"`
}

type MemberService interface {
	ListMembers(ctx context.Context, t Tenant) ([]ProfileResponse, error)
	InviteMember(ctx context.Context, t Tenant, req InviteMemberRequest) (ProfileResponse, error)
	UpdateMemberRole(ctx context.Context, t Tenant, userID string, req UpdateMemberRoleRequest) (ProfileResponse, error)
	RemoveMember(ctx context.Context, t Tenant, userID string) error
}

type memberService struct {
	profileRepo repository.ProfileRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	tenant      TenantService
}

func NewMemberService(
	profileRepo repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tenant TenantService,
) MemberService {
	return &memberService{profileRepo: profileRepo, auditRepo: auditRepo, txManager: txManager, tenant: tenant}
}

func toProfileResponse(p *model.Profile) ProfileResponse {
	var orgID *string
	if p.OrganizationID != nil {
		id := p.OrganizationID.String()
		orgID = &id
	}
	return ProfileResponse{
		ID:             p.ID.String(),
		OrganizationID: orgID,
		Email:          p.Email,
		FullName:       p.FullName,
		Role:           string(p.Role),
		AvatarURL:      p.AvatarURL,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

func (s *memberService) ListMembers(ctx context.Context, t Tenant) ([]ProfileResponse, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profileRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	res := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		res = append(res, toProfileResponse(&profiles[i]))
	}
	return res, nil
}

func (s *memberService) requireAdmin(t Tenant) (uuid.UUID, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.tenant.RequireCapability(t, model.CapManageUsers); err != nil {
		return uuid.Nil, err
	}
	return orgID, nil
}

// InviteMember creates an account directly inside the admin's organization.
func (s *memberService) InviteMember(ctx context.Context, t Tenant, req InviteMemberRequest) (ProfileResponse, error) {
	if err := validateRequest(req); err != nil {
		return ProfileResponse{}, err
	}
	orgID, err := s.requireAdmin(t)
	if err != nil {
		return ProfileResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.profileRepo.GetByEmail(ctx, email); err == nil {
		return ProfileResponse{}, invalid("an account already exists with this email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ProfileResponse{}, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return ProfileResponse{}, errors.New("failed to hash password")
	}

	profile := &model.Profile{
		OrganizationID: &orgID,
		Email:          email,
		FullName:       trimOptional(req.FullName),
		Role:           model.Role(req.Role),
		PasswordHash:   string(hash),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profileRepo.Create(txCtx, profile); err != nil {
			if repository.IsUniqueViolation(err) {
				return invalid("an account already exists with this email")
			}
			return fmt.Errorf("failed to create member: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionInviteMember, profile.ID.String(), profile.Email, map[string]string{"email": email, "role": req.Role})
	})
	if err != nil {
		return ProfileResponse{}, err
	}
	return toProfileResponse(profile), nil
}

func (s *memberService) loadMember(ctx context.Context, orgID uuid.UUID, userID string) (*model.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, invalid("invalid user id")
	}
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if profile.OrganizationID == nil || *profile.OrganizationID != orgID {
		return nil, forbidden("unauthorized for this organization")
	}
	return profile, nil
}

func (s *memberService) UpdateMemberRole(ctx context.Context, t Tenant, userID string, req UpdateMemberRoleRequest) (ProfileResponse, error) {
	if err := validateRequest(req); err != nil {
		return ProfileResponse{}, err
	}
	orgID, err := s.requireAdmin(t)
	if err != nil {
		return ProfileResponse{}, err
	}
	profile, err := s.loadMember(ctx, orgID, userID)
	if err != nil {
		return ProfileResponse{}, err
	}
	if profile.ID == t.ProfileID && model.Role(req.Role) != model.RoleAdmin {
		return ProfileResponse{}, invalid("you cannot remove your own admin role")
	}

	previous := profile.Role
	profile.Role = model.Role(req.Role)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profileRepo.Update(txCtx, profile); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionUpdateMemberRole, profile.ID.String(), profile.Email, map[string]string{"from": string(previous), "to": req.Role})
	})
	if err != nil {
		return ProfileResponse{}, err
	}
	return toProfileResponse(profile), nil
}

func (s *memberService) RemoveMember(ctx context.Context, t Tenant, userID string) error {
	orgID, err := s.requireAdmin(t)
	if err != nil {
		return err
	}
	profile, err := s.loadMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if profile.ID == t.ProfileID {
		return invalid("you cannot remove yourself")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profileRepo.Delete(txCtx, profile.ID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, t, model.ActionRemoveMember, profile.ID.String(), profile.Email, map[string]string{"email": profile.Email})
	})
}
