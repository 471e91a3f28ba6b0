package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
)

// GenerateRequest targets exactly one of StudentID, ClassName or StudentIDs.
type GenerateRequest struct {
	StudentID        *snowflake.ID
	ClassName        string
	Section          string
	StudentIDs       []snowflake.ID
	SessionID        snowflake.ID
	Month            int
	Year             int
	DueDate          *time.Time
	FeeTypeIDs       []snowflake.ID
	AutoLateFee      bool
	CarryForwardDues bool
	GeneratedBy      string
}

type GenerateResult struct {
	Success   bool               `json:"success"`
	Generated int                `json:"generated"`
	Failed    int                `json:"failed"`
	Cancelled bool               `json:"cancelled"`
	Bills     []DemandBill       `json:"bills"`
	Errors    []apperr.ItemError `json:"errors"`
}

type ListRequest struct {
	pagination.Pagination
	ListFilter
}

type ListResponse struct {
	pagination.PageInfo
	Bills []DemandBill `json:"bills"`
}

type OverdueSweepResult struct {
	Updated int      `json:"updated"`
	BillNos []string `json:"bill_nos"`
}

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	Get(ctx context.Context, billNo string) (DemandBill, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkSent(ctx context.Context, billNo string) (DemandBill, error)
	Cancel(ctx context.Context, billNo string, reason string) (DemandBill, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (OverdueSweepResult, error)
}

// LateFeeInput carries the student's unpaid bills that precede the new one.
type LateFeeInput struct {
	Now         time.Time
	PriorUnpaid []*DemandBill
}

// LateFeePolicy decides the late fee added to a newly generated bill.
type LateFeePolicy interface {
	LateFee(in LateFeeInput) decimal.Decimal
}

var (
	ErrInvalidTarget       = apperr.Validation("invalid_bill_target")
	ErrInvalidPeriod       = apperr.Validation("invalid_bill_period")
	ErrInvalidSession      = apperr.Validation("invalid_session_id")
	ErrInvalidBillNo       = apperr.Validation("invalid_bill_no")
	ErrInvalidStatus       = apperr.Validation("invalid_bill_status")
	ErrBillExists          = apperr.Conflict("bill_exists")
	ErrVersionConflict     = apperr.Conflict("bill_version_conflict")
	ErrNotFound            = apperr.NotFound("bill_not_found")
	ErrStudentNotFound     = apperr.NotFound("student_not_found")
	ErrStudentNotInSession = apperr.PreconditionFailed("student_not_in_session")
	ErrStudentNotActive    = apperr.PreconditionFailed("student_not_active")
	ErrBillCancelled       = apperr.PreconditionFailed("bill_cancelled")
	ErrBillHasPayments     = apperr.PreconditionFailed("bill_has_payments")
	ErrBillCarriedForward  = apperr.PreconditionFailed("bill_carried_forward")
	ErrBillNotSendable     = apperr.PreconditionFailed("bill_not_sendable")
)
