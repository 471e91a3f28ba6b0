package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FirstUsage returns the first usage that references value, or nil.
	FirstUsage(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, value any, usages []Usage) (*Usage, error)
}
