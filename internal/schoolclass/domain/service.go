package domain

import (
	"context"

	"github.com/smallbiznis/bursary/pkg/apperr"
)

type CreateClassRequest struct {
	Name        string
	DisplayName string
	Order       int
	Capacity    int
}

type Service interface {
	Create(ctx context.Context, req CreateClassRequest) (SchoolClass, error)
	List(ctx context.Context) ([]SchoolClass, error)
	GetByName(ctx context.Context, name string) (SchoolClass, error)
	// Next returns the class with the next higher order, or nil when name is
	// the final class.
	Next(ctx context.Context, name string) (*SchoolClass, error)
	Delete(ctx context.Context, name string) error
}

var (
	ErrInvalidName     = apperr.Validation("invalid_class_name")
	ErrInvalidOrder    = apperr.Validation("invalid_class_order")
	ErrInvalidCapacity = apperr.Validation("invalid_class_capacity")
	ErrClassExists     = apperr.Conflict("class_exists")
	ErrOrderTaken      = apperr.Conflict("class_order_taken")
	ErrNotFound        = apperr.NotFound("class_not_found")
	ErrClassInUse      = apperr.PreconditionFailed("class_in_use")
)
