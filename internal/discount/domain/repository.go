package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, discount *StudentFeeDiscount) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*StudentFeeDiscount, error)
	FindByKey(ctx context.Context, db *gorm.DB, tenantID, studentID, feeTypeID, sessionID snowflake.ID) (*StudentFeeDiscount, error)
	Update(ctx context.Context, db *gorm.DB, discount *StudentFeeDiscount) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
	ListByStudent(ctx context.Context, db *gorm.DB, tenantID, studentID snowflake.ID, sessionID *snowflake.ID) ([]*DiscountView, error)
	// MapForStudent returns the student's session discounts keyed by fee type.
	MapForStudent(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) (map[snowflake.ID]*StudentFeeDiscount, error)
}
