package service

import (
	"context"
	"encoding/json"
	"fmt"

	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	UserEmail  string          `json:"user_email"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, t Tenant, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo   repository.AuditRepository
	tenant TenantService
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, tenant TenantService) AuditService {
	return &auditService{repo: repo, tenant: tenant}
}

// GetAuditLogs lists the caller's organization history, newest first.
func (s *auditService) GetAuditLogs(ctx context.Context, t Tenant, page, limit int) ([]AuditLogResponse, int64, error) {
	orgID, err := s.tenant.RequireOrganization(t)
	if err != nil {
		return nil, 0, err
	}
	if err := s.tenant.RequireCapability(t, model.CapViewAuditLog); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.repo.List(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		email := "System"
		userID := ""
		if l.User != nil {
			email = l.User.Email
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		details := json.RawMessage(l.Details)
		if len(details) == 0 {
			details = json.RawMessage("{}")
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserEmail:  email,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// writeAudit records one audit row; called inside the mutation's transaction.
func writeAudit(ctx context.Context, repo repository.AuditRepository, t Tenant, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}
	var uid *uuid.UUID
	if t.ProfileID != uuid.Nil {
		id := t.ProfileID
		uid = &id
	}
	entry := &model.AuditLog{
		OrganizationID: t.OrganizationID,
		UserID:         uid,
		Action:         action,
		EntityID:       entityID,
		EntityName:     entityName,
		Details:        datatypes.JSON(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
