package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	demandbilldomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
)

type DetailInput struct {
	FeeTypeID      snowflake.ID
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
}

type CollectRequest struct {
	StudentID   snowflake.ID
	SessionID   snowflake.ID
	Amount      decimal.Decimal
	PaymentMode string
	PaymentDate *time.Time
	Details     []DetailInput
	BillNo      string
	CollectedBy string
	Remarks     string
	Metadata    map[string]any
}

type ReverseRequest struct {
	TransactionID string
	Reason        string
	ReversedBy    string
}

type ListRequest struct {
	pagination.Pagination
	ListFilter
}

type ListResponse struct {
	pagination.PageInfo
	Transactions []FeeTransaction `json:"transactions"`
}

// MonthBreakdown is one slot of the April to March calendar.
type MonthBreakdown struct {
	Slot     int             `json:"slot"`
	Month    int             `json:"month"`
	Billed   decimal.Decimal `json:"billed"`
	Discount decimal.Decimal `json:"discount"`
	Paid     decimal.Decimal `json:"paid"`
}

type Statement struct {
	StudentID      snowflake.ID                  `json:"student_id"`
	SessionID      snowflake.ID                  `json:"session_id"`
	TotalBilled    decimal.Decimal               `json:"total_billed"`
	TotalDiscount  decimal.Decimal               `json:"total_discount"`
	TotalPaid      decimal.Decimal               `json:"total_paid"`
	TotalDue       decimal.Decimal               `json:"total_due"`
	AdvanceBalance decimal.Decimal               `json:"advance_balance"`
	Months         []MonthBreakdown              `json:"months"`
	Bills          []demandbilldomain.DemandBill `json:"bills"`
	Transactions   []FeeTransaction              `json:"transactions"`
	Discounts      []discountdomain.DiscountView `json:"discounts"`
}

type Service interface {
	Collect(ctx context.Context, req CollectRequest) (FeeTransaction, error)
	Reverse(ctx context.Context, req ReverseRequest) (FeeTransaction, error)
	Get(ctx context.Context, transactionID string) (FeeTransaction, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Statement(ctx context.Context, studentID, sessionID snowflake.ID) (Statement, error)
}

var (
	ErrInvalidAmount         = apperr.Validation("invalid_amount")
	ErrInvalidPaymentMode    = apperr.Validation("invalid_payment_mode")
	ErrInvalidDetails        = apperr.Validation("invalid_payment_details")
	ErrDuplicateDetail       = apperr.Validation("duplicate_fee_type")
	ErrDetailSumMismatch     = apperr.Validation("detail_sum_mismatch")
	ErrInvalidStudent        = apperr.Validation("invalid_student_id")
	ErrInvalidSession        = apperr.Validation("invalid_session_id")
	ErrInvalidTransactionID  = apperr.Validation("invalid_transaction_id")
	ErrInvalidMonth          = apperr.Validation("invalid_month")
	ErrBillStudentMismatch   = apperr.Validation("bill_student_mismatch")
	ErrAmountExceedsBalance  = apperr.Validation("amount_exceeds_balance")
	ErrNotFound              = apperr.NotFound("transaction_not_found")
	ErrAlreadyReversed       = apperr.Conflict("already_reversed")
	ErrDuplicateTransaction  = apperr.Conflict("transaction_exists")
	ErrBillCancelled         = apperr.PreconditionFailed("bill_cancelled")
	ErrBillCarriedForward    = apperr.PreconditionFailed("bill_carried_forward")
	ErrBillAlreadyPaid       = apperr.PreconditionFailed("bill_already_paid")
	ErrReversalNotReversible = apperr.PreconditionFailed("reversal_not_reversible")
	ErrAdvanceApplied        = apperr.PreconditionFailed("advance_already_applied")
)
