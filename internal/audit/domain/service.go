package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	Actor      string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = apperr.Validation("invalid_page_token")
	ErrInvalidTimeRange = apperr.Validation("invalid_time_range")
	ErrInvalidAction    = apperr.Validation("invalid_action")
)
