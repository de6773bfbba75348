package service

import (
	"context"
	"errors"
	"testing"

	"stockino/internal/model"

	"github.com/google/uuid"
)

func TestInviteMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.seedTenant(t, "Shop", model.RoleAdmin)
	operator := e.seedMember(t, admin.OrgID(), model.RoleOperator)

	member, err := e.members.InviteMember(ctx, admin, InviteMemberRequest{Email: "New@Shop.test", Password: "secret1", Role: "manager"})
	if err != nil {
		t.Fatalf("InviteMember() error = %v", err)
	}
	if member.Email != "new@shop.test" || member.Role != "manager" {
		t.Errorf("member = %+v", member)
	}
	if member.OrganizationID == nil || *member.OrganizationID != admin.OrgID().String() {
		t.Errorf("organization = %v, want %s", member.OrganizationID, admin.OrgID())
	}

	tests := []struct {
		name   string
		tenant Tenant
		req    InviteMemberRequest
		want   error
	}{
		{"duplicate email", admin, InviteMemberRequest{Email: "new@shop.test", Password: "secret1", Role: "operator"}, ErrValidation},
		{"unknown role", admin, InviteMemberRequest{Email: "x@shop.test", Password: "secret1", Role: "owner"}, ErrValidation},
		{"operator cannot invite", operator, InviteMemberRequest{Email: "y@shop.test", Password: "secret1", Role: "operator"}, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.members.InviteMember(ctx, tt.tenant, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("InviteMember() error = %v, want %v", err, tt.want)
			}
		})
	}

	list, err := e.members.ListMembers(ctx, operator)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(list) != 3 {
		t.Errorf("members = %d, want 3", len(list))
	}
}

func TestUpdateMemberRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.seedTenant(t, "Shop", model.RoleAdmin)
	operator := e.seedMember(t, admin.OrgID(), model.RoleOperator)
	outsider := e.seedTenant(t, "Other", model.RoleOperator)

	updated, err := e.members.UpdateMemberRole(ctx, admin, operator.ProfileID.String(), UpdateMemberRoleRequest{Role: "manager"})
	if err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}
	if updated.Role != "manager" {
		t.Errorf("role = %s, want manager", updated.Role)
	}

	if _, err := e.members.UpdateMemberRole(ctx, admin, admin.ProfileID.String(), UpdateMemberRoleRequest{Role: "operator"}); !errors.Is(err, ErrValidation) {
		t.Errorf("self demotion error = %v, want validation", err)
	}
	if _, err := e.members.UpdateMemberRole(ctx, admin, outsider.ProfileID.String(), UpdateMemberRoleRequest{Role: "manager"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("outsider error = %v, want unauthorized", err)
	}
	if _, err := e.members.UpdateMemberRole(ctx, admin, uuid.NewString(), UpdateMemberRoleRequest{Role: "manager"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want not found", err)
	}
}

func TestRemoveMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.seedTenant(t, "Shop", model.RoleAdmin)
	operator := e.seedMember(t, admin.OrgID(), model.RoleOperator)
	outsider := e.seedTenant(t, "Other", model.RoleOperator)

	if err := e.members.RemoveMember(ctx, admin, outsider.ProfileID.String()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("outsider remove error = %v, want unauthorized", err)
	}
	if err := e.members.RemoveMember(ctx, admin, admin.ProfileID.String()); !errors.Is(err, ErrValidation) {
		t.Errorf("remove self error = %v, want validation", err)
	}
	if err := e.members.RemoveMember(ctx, operator, admin.ProfileID.String()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("operator remove error = %v, want unauthorized", err)
	}
	if err := e.members.RemoveMember(ctx, admin, operator.ProfileID.String()); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if err := e.members.RemoveMember(ctx, admin, operator.ProfileID.String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove error = %v, want not found", err)
	}
	list, err := e.members.ListMembers(ctx, admin)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("members = %d, want 1", len(list))
	}
}

func TestAuditLogs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.seedTenant(t, "Shop", model.RoleAdmin)
	operator := e.seedMember(t, admin.OrgID(), model.RoleOperator)
	p := e.seedProduct(t, admin, "Tea", 5, 2)

	if _, err := e.sale.CreateSale(ctx, operator, CreateSaleRequest{SaleDate: "2025-05-01", Items: []LineItemRequest{line(p, 1, 2)}}); err != nil {
		t.Fatalf("CreateSale() error = %v", err)
	}
	if _, err := e.members.UpdateMemberRole(ctx, admin, operator.ProfileID.String(), UpdateMemberRoleRequest{Role: "manager"}); err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}

	logs, total, err := e.auditSvc.GetAuditLogs(ctx, admin, 1, 20)
	if err != nil {
		t.Fatalf("GetAuditLogs() error = %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("logs = %d (total %d), want 2", len(logs), total)
	}
	actions := map[string]bool{}
	for _, l := range logs {
		actions[l.Action] = true
	}
	if !actions[model.ActionCreateSale] || !actions[model.ActionUpdateMemberRole] {
		t.Errorf("actions = %v", actions)
	}

	if _, _, err := e.auditSvc.GetAuditLogs(ctx, operator, 1, 20); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("operator audit error = %v, want unauthorized", err)
	}
	if other, total, err := e.auditSvc.GetAuditLogs(ctx, e.seedTenant(t, "Other", model.RoleAdmin), 1, 20); err != nil || total != 0 || len(other) != 0 {
		t.Errorf("other organization logs = %d, %v; want none", total, err)
	}
}
