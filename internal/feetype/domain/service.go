package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/pkg/apperr"
)

type CreateFeeTypeRequest struct {
	Name        string
	Description string
	Frequency   string
	IsDefault   bool
}

// UpdateFeeTypeRequest patches the non-nil fields. An empty Frequency clears it.
type UpdateFeeTypeRequest struct {
	Name        *string
	Description *string
	Frequency   *string
}

type SeedResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

type Service interface {
	Create(ctx context.Context, req CreateFeeTypeRequest) (FeeType, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateFeeTypeRequest) (FeeType, error)
	SetActive(ctx context.Context, id snowflake.ID, active bool) (FeeType, error)
	Delete(ctx context.Context, id snowflake.ID) error
	List(ctx context.Context, activeOnly bool) ([]FeeType, error)
	Get(ctx context.Context, id snowflake.ID) (FeeType, error)
	SeedDefaults(ctx context.Context, tenantID snowflake.ID) (SeedResult, error)
}

var (
	ErrInvalidName      = apperr.Validation("invalid_fee_type_name")
	ErrInvalidFrequency = apperr.Validation("invalid_frequency")
	ErrInvalidID        = apperr.Validation("invalid_fee_type_id")
	ErrFeeTypeExists    = apperr.Conflict("fee_type_exists")
	ErrNotFound         = apperr.NotFound("fee_type_not_found")
	ErrFeeTypeInactive  = apperr.PreconditionFailed("fee_type_inactive")
	ErrFeeTypeInUse     = apperr.PreconditionFailed("fee_type_in_use")
	ErrFeeTypeDefault   = apperr.PreconditionFailed("fee_type_default")
)
