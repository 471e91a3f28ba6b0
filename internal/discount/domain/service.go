package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/pkg/apperr"
)

type CreateDiscountRequest struct {
	StudentID    snowflake.ID
	FeeTypeID    snowflake.ID
	SessionID    snowflake.ID
	DiscountType string
	Value        decimal.Decimal
	Reason       string
	ApprovedBy   string
}

type UpdateDiscountRequest struct {
	DiscountType *string
	Value        *decimal.Decimal
	Reason       *string
	ApprovedBy   *string
}

type Service interface {
	Create(ctx context.Context, req CreateDiscountRequest) (StudentFeeDiscount, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateDiscountRequest) (StudentFeeDiscount, error)
	Delete(ctx context.Context, id snowflake.ID) error
	FindByStudent(ctx context.Context, studentID snowflake.ID, sessionID *snowflake.ID) ([]DiscountView, error)
}

var (
	ErrInvalidDiscountType  = apperr.Validation("invalid_discount_type")
	ErrInvalidDiscountValue = apperr.Validation("invalid_discount_value")
	ErrPercentageTooHigh    = apperr.Validation("discount_percentage_exceeds_100")
	ErrInvalidKey           = apperr.Validation("invalid_discount_key")
	ErrDiscountExists       = apperr.Conflict("discount_exists")
	ErrNotFound             = apperr.NotFound("discount_not_found")
)
