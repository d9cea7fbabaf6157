package service

import (
	"context"
	"fmt"
	"strings"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
)

// AuditTables are the tables that carry an audit trail
var AuditTables = []string{"books", "authors", "publishers", "genres", "users"}

// AuditQuery is a parsed audit log listing request. Empty fields do not filter.
type AuditQuery struct {
	Table     string
	RecordID  string
	UserID    string
	Operation string
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery, p pagination.Params) (Page[model.AuditLog], error)
	GetHistory(ctx context.Context, table, recordID string, p pagination.Params) (Page[model.AuditLog], error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs lists audit rows newest first
func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery, p pagination.Params) (Page[model.AuditLog], error) {
	filter := repository.AuditFilter{
		Table:     strings.TrimSpace(q.Table),
		RecordID:  strings.TrimSpace(q.RecordID),
		Operation: strings.ToUpper(strings.TrimSpace(q.Operation)),
	}
	if filter.Table != "" && !knownAuditTable(filter.Table) {
		return Page[model.AuditLog]{}, apperror.Validation("unknown table_name %q", filter.Table)
	}
	if q.UserID != "" {
		id, err := uuid.Parse(q.UserID)
		if err != nil {
			return Page[model.AuditLog]{}, apperror.Validation("invalid user_id: %s", q.UserID)
		}
		filter.UserID = &id
	}

	logs, total, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return Page[model.AuditLog]{}, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return newPage(logs, total, p), nil
}

// GetHistory lists every change recorded for one row, newest first
func (s *auditService) GetHistory(ctx context.Context, table, recordID string, p pagination.Params) (Page[model.AuditLog], error) {
	if recordID == "" {
		return Page[model.AuditLog]{}, apperror.Validation("record_id is required")
	}
	return s.GetAuditLogs(ctx, AuditQuery{Table: table, RecordID: recordID}, p)
}

func knownAuditTable(table string) bool {
	for _, t := range AuditTables {
		if t == table {
			return true
		}
	}
	return false
}
