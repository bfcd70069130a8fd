package service

import (
	"context"
	"fmt"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"
	"carcatalog/pkg/pagination"
)

type AuditLogPage struct {
	Logs       []model.AuditLog `json:"logs"`
	Pagination pagination.Meta  `json:"pagination"`
}

type AuditService interface {
	ListLogs(ctx context.Context, action string, page, limit int) (*AuditLogPage, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) ListLogs(ctx context.Context, action string, page, limit int) (*AuditLogPage, error) {
	params := pagination.Normalize(page, limit)
	logs, total, err := s.auditRepo.List(ctx, action, params.Page, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return &AuditLogPage{
		Logs:       logs,
		Pagination: pagination.NewMeta(total, params),
	}, nil
}
