package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *AcademicSession) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*AcademicSession, error)
	FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, name string) (*AcademicSession, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*AcademicSession, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error

	// LockPointer creates the tenant pointer when missing and locks it. The
	// flag reports whether this call created the row.
	LockPointer(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, actor string, now time.Time) (*ActiveSessionPointer, bool, error)
	FindPointer(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*ActiveSessionPointer, error)
	UpdatePointer(ctx context.Context, db *gorm.DB, pointer *ActiveSessionPointer) error
	SetActive(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, now time.Time) error
}
