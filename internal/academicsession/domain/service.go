package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/pkg/apperr"
)

type CreateSessionRequest struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateSessionRequest) (AcademicSession, error)
	List(ctx context.Context) ([]AcademicSession, error)
	Get(ctx context.Context, id snowflake.ID) (AcademicSession, error)
	GetActive(ctx context.Context) (AcademicSession, error)
	Activate(ctx context.Context, id snowflake.ID) (AcademicSession, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidName      = apperr.Validation("invalid_session_name")
	ErrInvalidDateRange = apperr.Validation("invalid_date_range")
	ErrInvalidID        = apperr.Validation("invalid_session_id")
	ErrSessionExists    = apperr.Conflict("session_exists")
	ErrNotFound         = apperr.NotFound("session_not_found")
	ErrNoActiveSession  = apperr.NotFound("no_active_session")
	ErrSessionActive    = apperr.PreconditionFailed("session_active")
	ErrSessionInUse     = apperr.PreconditionFailed("session_in_use")
)
