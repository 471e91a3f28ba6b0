package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	SessionID *snowflake.ID
	StudentID *snowflake.ID
	ClassName string
	Month     int
	Year      int
	Status    BillStatus
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *DemandBill) error
	InsertItems(ctx context.Context, db *gorm.DB, items []*DemandBillItem) error
	FindByNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billNo string) (*DemandBill, error)
	FindByNoForUpdate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billNo string) (*DemandBill, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID, month, year int) (*DemandBill, error)
	ListItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billIDs []snowflake.ID) ([]*DemandBillItem, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*DemandBill, error)
	ListByStudentSession(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) ([]*DemandBill, error)
	ListBySession(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) ([]*DemandBill, error)

	// ListOpenBefore locks the student's unpaid, uncarried, uncancelled bills
	// of the session whose period precedes period.
	ListOpenBefore(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID, period int) ([]*DemandBill, error)
	// BilledFeeTypes returns fee types already billed to the student in the
	// session on bills that are not cancelled.
	BilledFeeTypes(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) (map[snowflake.ID]struct{}, error)
	// AvailableAdvance is the unlinked money received from the student in the
	// session minus the advance already consumed by live bills.
	AvailableAdvance(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) (decimal.Decimal, error)

	MarkCarried(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billIDs []snowflake.ID, carriedTo string, now time.Time) error
	ReleaseCarried(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, carriedTo string, now time.Time) (int64, error)
	// Save writes the mutable columns guarded by the version the bill was
	// read at, then bumps the version.
	Save(ctx context.Context, db *gorm.DB, bill *DemandBill) error
	ListOverdueCandidates(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*DemandBill, error)
}
