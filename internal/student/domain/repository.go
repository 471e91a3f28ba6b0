package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type PlacementFilter struct {
	SessionID snowflake.ID
	ClassName string
	Section   string
	Status    Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, student *StudentDetails) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*StudentDetails, error)
	// FindByIDForUpdate locks the student row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*StudentDetails, error)
	FindByIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) ([]*StudentDetails, error)
	ListByPlacement(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter PlacementFilter) ([]*StudentDetails, error)
	UpdatePlacement(ctx context.Context, db *gorm.DB, student *StudentDetails) error
	InsertHistory(ctx context.Context, db *gorm.DB, history *StudentAcademicHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, tenantID, studentID snowflake.ID) ([]*StudentAcademicHistory, error)
	CountByStatus(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) (map[Status]int64, error)
}
