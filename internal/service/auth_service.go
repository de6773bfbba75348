package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenTTL is the lifetime of an access token.
const TokenTTL = 24 * time.Hour

// DTOs
type SignUpRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	FullName *string `json:"full_name" binding:"omitempty,max=255"`
	Company  *string `json:"company" binding:"omitempty,min=2,max=80"`
}

type SignInRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	OrganizationCode string `json:"organization_code"`
}

type SessionResponse struct {
	Token        string                `json:"token"`
	ExpiresAt    string                `json:"expires_at"`
	Profile      ProfileResponse       `json:"profile"`
	Organization *OrganizationResponse `json:"organization,omitempty"`
}

type MeResponse struct {
	Profile      ProfileResponse       `json:"profile"`
	Organization *OrganizationResponse `json:"organization,omitempty"`
	Capabilities []string              `json:"capabilities"`
}

type AuthService interface {
	SignUp(ctx context.Context, req SignUpRequest) (SessionResponse, error)
	SignIn(ctx context.Context, req SignInRequest) (SessionResponse, error)
	Me(ctx context.Context, t Tenant) (MeResponse, error)
}

type authService struct {
	profileRepo repository.ProfileRepository
	orgRepo     repository.OrganizationRepository
	txManager   repository.TransactionManager
	orgs        OrganizationService
	secret      []byte
	now         func() time.Time
}

func NewAuthService(
	profileRepo repository.ProfileRepository,
	orgRepo repository.OrganizationRepository,
	txManager repository.TransactionManager,
	orgs OrganizationService,
	secret []byte,
) AuthService {
	return &authService{
		profileRepo: profileRepo,
		orgRepo:     orgRepo,
		txManager:   txManager,
		orgs:        orgs,
		secret:      secret,
		now:         time.Now,
	}
}

// SignUp creates an admin account. With a company name the organization is
// created in the same transaction and the account joins it.
func (s *authService) SignUp(ctx context.Context, req SignUpRequest) (SessionResponse, error) {
	if err := validateRequest(req); err != nil {
		return SessionResponse{}, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.profileRepo.GetByEmail(ctx, email); err == nil {
		return SessionResponse{}, invalid("an account already exists with this email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionResponse{}, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return SessionResponse{}, errors.New("failed to hash password")
	}

	profile := &model.Profile{
		Email:        email,
		FullName:     trimOptional(req.FullName),
		Role:         model.RoleAdmin,
		PasswordHash: string(hash),
	}
	var org *OrganizationResponse

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profileRepo.Create(txCtx, profile); err != nil {
			if repository.IsUniqueViolation(err) {
				return invalid("an account already exists with this email")
			}
			return fmt.Errorf("failed to create account: %w", err)
		}
		company := trimOptional(req.Company)
		if company == nil {
			return nil
		}
		created, err := s.orgs.UpsertOrganization(txCtx, Tenant{ProfileID: profile.ID, Role: profile.Role}, UpsertOrganizationRequest{Name: *company})
		if err != nil {
			return err
		}
		orgID, err := uuid.Parse(created.ID)
		if err != nil {
			return fmt.Errorf("invalid organization id: %w", err)
		}
		org = &created
		profile.OrganizationID = &orgID
		return nil
	})
	if err != nil {
		return SessionResponse{}, err
	}
	return s.session(profile, org)
}

// SignIn checks the credentials and the organization code rules: a given code must
// exist, a non-admin must use the code of its own organization, and a non-admin that
// belongs to an organization must give one.
func (s *authService) SignIn(ctx context.Context, req SignInRequest) (SessionResponse, error) {
	if err := validateRequest(req); err != nil {
		return SessionResponse{}, err
	}
	profile, err := s.profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionResponse{}, ErrInvalidCredentials
		}
		return SessionResponse{}, fmt.Errorf("failed to load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return SessionResponse{}, ErrInvalidCredentials
	}

	code := strings.ToUpper(strings.TrimSpace(req.OrganizationCode))
	isAdmin := profile.Role == model.RoleAdmin

	if code != "" {
		org, err := s.orgRepo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return SessionResponse{}, invalid("invalid organization code")
			}
			return SessionResponse{}, fmt.Errorf("failed to check organization code: %w", err)
		}
		if !isAdmin && (profile.OrganizationID == nil || *profile.OrganizationID != org.ID) {
			return SessionResponse{}, forbidden("this account does not belong to the organization")
		}
	} else if !isAdmin && profile.OrganizationID != nil {
		return SessionResponse{}, invalid("organization code is required")
	}

	org, err := s.organizationOf(ctx, profile)
	if err != nil {
		return SessionResponse{}, err
	}
	return s.session(profile, org)
}

func (s *authService) Me(ctx context.Context, t Tenant) (MeResponse, error) {
	profile, err := s.profileRepo.GetByID(ctx, t.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MeResponse{}, notFound("profile", t.ProfileID)
		}
		return MeResponse{}, fmt.Errorf("failed to load profile: %w", err)
	}
	org, err := s.organizationOf(ctx, profile)
	if err != nil {
		return MeResponse{}, err
	}
	caps := profile.Role.Capabilities()
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}
	return MeResponse{Profile: toProfileResponse(profile), Organization: org, Capabilities: names}, nil
}

func (s *authService) organizationOf(ctx context.Context, profile *model.Profile) (*OrganizationResponse, error) {
	if profile.OrganizationID == nil {
		return nil, nil
	}
	org, err := s.orgRepo.FindByID(ctx, *profile.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	res := toOrganizationResponse(org)
	return &res, nil
}

func (s *authService) session(profile *model.Profile, org *OrganizationResponse) (SessionResponse, error) {
	now := s.now()
	exp := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   profile.ID.String(),
		"email": profile.Email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return SessionResponse{}, errors.New("failed to generate token")
	}
	return SessionResponse{
		Token:        signed,
		ExpiresAt:    exp.UTC().Format(time.RFC3339),
		Profile:      toProfileResponse(profile),
		Organization: org,
	}, nil
}
