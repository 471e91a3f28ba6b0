package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, className string) (*FeeStructure, error)
	FindByKeyForUpdate(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, className string) (*FeeStructure, error)
	ListBySession(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) ([]*FeeStructure, error)
	Insert(ctx context.Context, db *gorm.DB, structure *FeeStructure) error
	UpdateTotals(ctx context.Context, db *gorm.DB, structure *FeeStructure) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error

	ListItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, structureIDs []snowflake.ID) ([]*FeeStructureItem, error)
	InsertItems(ctx context.Context, db *gorm.DB, items []*FeeStructureItem) error
	DeleteItems(ctx context.Context, db *gorm.DB, tenantID, structureID snowflake.ID) error
}
