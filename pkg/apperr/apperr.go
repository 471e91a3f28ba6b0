package apperr

import (
	"context"
	"errors"
)

// Kind classifies an error for callers that need to react to it, such as the
// HTTP layer mapping errors to status codes.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindValidation         Kind = "validation"
	KindPreconditionFailed Kind = "precondition_failed"
	KindCancelled          Kind = "cancelled"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// Error is a classified error identified by a stable snake_case code.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func NotFound(code string) *Error {
	return &Error{Kind: KindNotFound, Code: code}
}

func Conflict(code string) *Error {
	return &Error{Kind: KindConflict, Code: code}
}

func Validation(code string) *Error {
	return &Error{Kind: KindValidation, Code: code}
}

func PreconditionFailed(code string) *Error {
	return &Error{Kind: KindPreconditionFailed, Code: code}
}

func Cancelled(code string) *Error {
	return &Error{Kind: KindCancelled, Code: code}
}

func RateLimited(code string) *Error {
	return &Error{Kind: KindRateLimited, Code: code}
}

var (
	ErrCancelled      = Cancelled("cancelled")
	ErrInvalidTenant  = Validation("invalid_tenant")
	ErrInvalidRequest = Validation("invalid_request")
)

// KindOf returns the kind of the first classified error in err's chain.
// Context cancellation is reported as KindCancelled.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindInternal
}

// CodeOf returns the code of the first classified error in err's chain.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCancelled.Code
	}
	return "internal_error"
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ItemError records the failure of a single entity inside a batch operation.
type ItemError struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewItemError(id string, err error) ItemError {
	item := ItemError{
		ID:   id,
		Kind: KindOf(err),
		Code: CodeOf(err),
	}
	if err != nil {
		item.Message = err.Error()
	}
	if item.Kind == KindInternal {
		item.Message = "internal error"
	}
	return item
}
