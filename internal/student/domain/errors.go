package domain

import "github.com/smallbiznis/bursary/pkg/apperr"

var (
	ErrNotFound        = apperr.NotFound("student_not_found")
	ErrInvalidStudent  = apperr.Validation("invalid_student")
	ErrAdmissionExists = apperr.Conflict("admission_no_exists")
)
