package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	StudentID *snowflake.ID
	SessionID *snowflake.ID
	BillNo    string
	Kind      TransactionKind
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *FeeTransaction) error
	InsertDetails(ctx context.Context, db *gorm.DB, details []*FeePaymentDetail) error
	FindByTransactionID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, transactionID string) (*FeeTransaction, error)
	FindByTransactionIDForUpdate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, transactionID string) (*FeeTransaction, error)
	ListDetails(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, txnIDs []snowflake.ID) ([]*FeePaymentDetail, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*FeeTransaction, error)
	ListByStudentSession(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) ([]*FeeTransaction, error)
	// MarkReversed records the reversing transaction on the original. It
	// reports false when the original was already reversed.
	MarkReversed(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, reversedBy string) (bool, error)
}
