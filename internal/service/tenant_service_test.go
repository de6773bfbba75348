package service

import (
	"context"
	"errors"
	"testing"

	"stockino/internal/model"

	"github.com/google/uuid"
)

func TestResolve(t *testing.T) {
	e := newEnv(t)
	member := e.seedTenant(t, "Shop", model.RoleManager)

	got, err := e.tenant.Resolve(context.Background(), member.ProfileID.String())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.OrgID() != member.OrgID() || got.Role != model.RoleManager {
		t.Errorf("Resolve() = %+v, want %+v", got, member)
	}

	for _, principal := range []string{"", "not-a-uuid", uuid.NewString()} {
		if _, err := e.tenant.Resolve(context.Background(), principal); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Resolve(%q) error = %v, want unauthorized", principal, err)
		}
	}
}

func TestTenantGuards(t *testing.T) {
	g := NewTenantService(nil)
	orgA, orgB := uuid.New(), uuid.New()
	nilOrg := uuid.Nil

	tests := []struct {
		name     string
		tenant   Tenant
		resource uuid.UUID
		wantErr  bool
	}{
		{"same organization", Tenant{OrganizationID: &orgA, Role: model.RoleOperator}, orgA, false},
		{"other organization", Tenant{OrganizationID: &orgA, Role: model.RoleAdmin}, orgB, true},
		{"no organization", Tenant{Role: model.RoleAdmin}, orgA, true},
		{"nil organization id", Tenant{OrganizationID: &nilOrg, Role: model.RoleAdmin}, uuid.Nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AuthorizeResource(tt.tenant, tt.resource)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AuthorizeResource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnauthorized) {
				t.Errorf("error = %v, want unauthorized", err)
			}
		})
	}
}

func TestRequireCapability(t *testing.T) {
	g := NewTenantService(nil)
	tests := []struct {
		role model.Role
		cap  model.Capability
		want bool
	}{
		{model.RoleAdmin, model.CapManageUsers, true},
		{model.RoleAdmin, model.CapViewAuditLog, true},
		{model.RoleManager, model.CapManageInventory, true},
		{model.RoleManager, model.CapEditOrganization, false},
		{model.RoleOperator, model.CapViewReports, true},
		{model.RoleOperator, model.CapManageUsers, false},
		{model.Role("guest"), model.CapManageInventory, false},
	}
	for _, tt := range tests {
		err := g.RequireCapability(Tenant{Role: tt.role}, tt.cap)
		if (err == nil) != tt.want {
			t.Errorf("RequireCapability(%s, %s) error = %v, want allowed %v", tt.role, tt.cap, err, tt.want)
		}
	}
}

func TestRequireInventoryOrg(t *testing.T) {
	g := NewTenantService(nil)
	org := uuid.New()
	tenant := Tenant{OrganizationID: &org, Role: model.RoleOperator}

	if got, err := requireInventoryOrg(g, tenant, ""); err != nil || got != org {
		t.Errorf("requireInventoryOrg() = %v, %v", got, err)
	}
	if _, err := requireInventoryOrg(g, tenant, org.String()); err != nil {
		t.Errorf("own organization error = %v", err)
	}
	for _, requested := range []string{uuid.NewString(), "garbage"} {
		if _, err := requireInventoryOrg(g, tenant, requested); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("requireInventoryOrg(%q) error = %v, want unauthorized", requested, err)
		}
	}
}
