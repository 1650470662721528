package service

import (
	"context"
	"encoding/json"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
)

// AuditService exposes the audit trail for the admin activity view
type AuditService interface {
	ListLogs(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	audit repository.AuditRepository
}

func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) ListLogs(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	return s.audit.List(ctx, action, page, limit)
}

// writeAuditLog records Who/What/When for a money-affecting change.
// Best-effort: audit failures never fail the operation being audited.
func writeAuditLog(ctx context.Context, audit repository.AuditRepository, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	_ = audit.Log(ctx, &entry)
}
