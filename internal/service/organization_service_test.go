package service

import (
	"context"
	"errors"
	"testing"

	"stockino/internal/model"
)

func (e *testEnv) seedLoner(t *testing.T) Tenant {
	t.Helper()
	p := &model.Profile{Email: randomCode(t) + "@example.com", Role: model.RoleOperator}
	if err := e.profiles.Create(context.Background(), p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return Tenant{ProfileID: p.ID, Role: p.Role}
}

func TestUpsertOrganizationCreatesAndJoins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	loner := e.seedLoner(t)
	contact := "Owner@Example.com"

	org, err := e.orgs.UpsertOrganization(ctx, loner, UpsertOrganizationRequest{Name: "  Corner Shop ", ContactEmail: &contact})
	if err != nil {
		t.Fatalf("UpsertOrganization() error = %v", err)
	}
	if org.Name != "Corner Shop" || org.ContactEmail != "owner@example.com" {
		t.Errorf("organization = %+v", org)
	}
	if len(org.Code) != model.OrganizationCodeLength {
		t.Errorf("code %q has length %d", org.Code, len(org.Code))
	}

	profile, err := e.profiles.GetByID(ctx, loner.ProfileID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if profile.OrganizationID == nil || profile.OrganizationID.String() != org.ID {
		t.Errorf("profile organization = %v, want %s", profile.OrganizationID, org.ID)
	}
	if profile.Role != model.RoleAdmin {
		t.Errorf("role = %s, want admin", profile.Role)
	}
}

func TestUpsertOrganizationUpdates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.seedTenant(t, "Shop", model.RoleAdmin)
	operator := e.seedMember(t, admin.OrgID(), model.RoleOperator)

	before, err := e.orgs.GetOrganization(ctx, operator)
	if err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}

	updated, err := e.orgs.UpsertOrganization(ctx, admin, UpsertOrganizationRequest{Name: "Shop & Co"})
	if err != nil {
		t.Fatalf("UpsertOrganization() error = %v", err)
	}
	if updated.Name != "Shop & Co" || updated.Code != before.Code {
		t.Errorf("updated = %+v, want renamed with code %s", updated, before.Code)
	}

	if _, err := e.orgs.UpsertOrganization(ctx, operator, UpsertOrganizationRequest{Name: "Hijack"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("operator update error = %v, want unauthorized", err)
	}
	if _, err := e.orgs.UpsertOrganization(ctx, admin, UpsertOrganizationRequest{Name: "X"}); !errors.Is(err, ErrValidation) {
		t.Errorf("short name error = %v, want validation", err)
	}
}

func TestOrganizationCodeRetries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	taken := e.seedTenant(t, "Taken", model.RoleAdmin)
	existing, err := e.orgs.GetOrganization(ctx, taken)
	if err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}

	svc := e.orgs.(*organizationService)
	calls := 0
	svc.newCode = func() (string, error) {
		calls++
		if calls < 3 {
			return existing.Code, nil
		}
		return "FRESH2", nil
	}
	org, err := e.orgs.UpsertOrganization(ctx, e.seedLoner(t), UpsertOrganizationRequest{Name: "Second"})
	if err != nil {
		t.Fatalf("UpsertOrganization() error = %v", err)
	}
	if org.Code != "FRESH2" || calls != 3 {
		t.Errorf("code = %q after %d draws, want FRESH2 after 3", org.Code, calls)
	}

	svc.newCode = func() (string, error) { return existing.Code, nil }
	_, err = e.orgs.UpsertOrganization(ctx, e.seedLoner(t), UpsertOrganizationRequest{Name: "Third"})
	var depErr *ExternalDependencyError
	if !errors.As(err, &depErr) || !errors.Is(err, ErrFeatureUnavailable) {
		t.Errorf("error = %v, want ExternalDependencyError", err)
	}
}

func TestRandomOrganizationCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomOrganizationCode()
		if err != nil {
			t.Fatalf("RandomOrganizationCode() error = %v", err)
		}
		if len(code) != model.OrganizationCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if r == '0' || r == 'O' || r == '1' || r == 'I' {
				t.Fatalf("code %q contains an ambiguous character", code)
			}
		}
	}
}
