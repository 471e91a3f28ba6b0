package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/pkg/apperr"
)

type ItemInput struct {
	FeeTypeID  snowflake.ID
	Amount     decimal.Decimal
	IsOptional bool
	Frequency  string
}

type UpsertRequest struct {
	SessionID snowflake.ID
	ClassName string
	Items     []ItemInput
}

type CopyRequest struct {
	SourceSessionID    snowflake.ID
	TargetSessionID    snowflake.ID
	Classes            []string
	PercentageIncrease decimal.Decimal
}

type CopyResult struct {
	Copied  []string `json:"copied"`
	Skipped []string `json:"skipped"`
}

type Service interface {
	// Resolve returns the priced items for the pair. An unconfigured pair
	// yields an empty resolution, not an error.
	Resolve(ctx context.Context, sessionID snowflake.ID, className string) (Resolution, error)
	// Upsert replaces every item of the structure with req.Items.
	Upsert(ctx context.Context, req UpsertRequest) (FeeStructure, error)
	Copy(ctx context.Context, req CopyRequest) (CopyResult, error)
	List(ctx context.Context, sessionID snowflake.ID) ([]FeeStructure, error)
	Delete(ctx context.Context, sessionID snowflake.ID, className string) error
}

var (
	ErrInvalidSession    = apperr.Validation("invalid_session_id")
	ErrInvalidClassName  = apperr.Validation("invalid_class_name")
	ErrInvalidAmount     = apperr.Validation("invalid_amount")
	ErrInvalidFeeType    = apperr.Validation("invalid_fee_type_id")
	ErrDuplicateFeeType  = apperr.Validation("duplicate_fee_type")
	ErrInvalidPercentage = apperr.Validation("invalid_percentage_increase")
	ErrSameSession       = apperr.Validation("same_source_and_target_session")
	ErrStructureExists   = apperr.Conflict("fee_structure_exists")
	ErrStructureNotFound = apperr.NotFound("fee_structure_not_found")
)
