package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, feeType *FeeType) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*FeeType, error)
	FindByCode(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, code string) (*FeeType, error)
	FindByIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]*FeeType, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, activeOnly bool) ([]*FeeType, error)
	Update(ctx context.Context, db *gorm.DB, feeType *FeeType) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
}
