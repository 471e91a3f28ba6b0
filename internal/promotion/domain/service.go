package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/pkg/apperr"
)

const (
	OutcomePromoted  = "promoted"
	OutcomePassedOut = "passed_out"

	ReasonEligible  = "eligible"
	ReasonNotActive = "status_not_active"
)

type PreviewRequest struct {
	SessionID snowflake.ID
	ClassName string
	Section   string
}

type PreviewStudent struct {
	studentdomain.StudentDetails
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

type PreviewMeta struct {
	Total          int     `json:"total"`
	Eligible       int     `json:"eligible"`
	Ineligible     int     `json:"ineligible"`
	NextClass      *string `json:"next_class"`
	IsPassoutClass bool    `json:"is_passout_class"`
}

type Preview struct {
	Students []PreviewStudent `json:"students"`
	Meta     PreviewMeta      `json:"meta"`
}

type ExecuteRequest struct {
	StudentIDs       []snowflake.ID
	CurrentSessionID snowflake.ID
	NextSessionID    snowflake.ID
	NextClass        string
	NextSection      string
	MarkAsPassout    bool
	PromotedBy       string
}

type ExecuteResult struct {
	Success   bool               `json:"success"`
	Promoted  int                `json:"promoted"`
	Failed    int                `json:"failed"`
	Cancelled bool               `json:"cancelled"`
	Errors    []apperr.ItemError `json:"errors"`
}

type Service interface {
	Preview(ctx context.Context, req PreviewRequest) (Preview, error)
	// Execute moves each student in its own transaction. A failed student is
	// reported in the result and never undoes students already moved.
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)
}

var (
	ErrInvalidSession     = apperr.Validation("invalid_session_id")
	ErrInvalidClassName   = apperr.Validation("invalid_class_name")
	ErrInvalidStudentIDs  = apperr.Validation("invalid_student_ids")
	ErrSameSession        = apperr.Validation("same_current_and_next_session")
	ErrStudentNotEligible = apperr.PreconditionFailed("student_not_eligible")
)
