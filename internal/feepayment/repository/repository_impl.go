package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/feepayment/domain"
	"github.com/smallbiznis/bursary/pkg/db/option"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.FeeTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) InsertDetails(ctx context.Context, db *gorm.DB, details []*domain.FeePaymentDetail) error {
	if len(details) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(details).Error
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, transactionID string) (*domain.FeeTransaction, error) {
	return r.find(ctx, db, tenantID, transactionID, false)
}

func (r *repo) FindByTransactionIDForUpdate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, transactionID string) (*domain.FeeTransaction, error) {
	return r.find(ctx, db, tenantID, transactionID, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, transactionID string, lock bool) (*domain.FeeTransaction, error) {
	var txn domain.FeeTransaction
	stmt := db.WithContext(ctx)
	if lock {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Where("tenant_id = ? AND transaction_id = ?", tenantID, transactionID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repo) ListDetails(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, txnIDs []snowflake.ID) ([]*domain.FeePaymentDetail, error) {
	if len(txnIDs) == 0 {
		return nil, nil
	}
	var details []*domain.FeePaymentDetail
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND txn_id IN ?", tenantID, txnIDs).
		Order("txn_id asc, id asc").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.FeeTransaction, error) {
	stmt := db.WithContext(ctx).Model(&domain.FeeTransaction{}).Where("tenant_id = ?", tenantID)
	if filter.StudentID != nil {
		stmt = stmt.Where("student_id = ?", *filter.StudentID)
	}
	if filter.SessionID != nil {
		stmt = stmt.Where("session_id = ?", *filter.SessionID)
	}
	if billNo := strings.TrimSpace(filter.BillNo); billNo != "" {
		stmt = stmt.Where("bill_no = ?", billNo)
	}
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	stmt = option.ApplyPagination(page).Apply(stmt).Order("created_at desc, id desc")

	var txns []*domain.FeeTransaction
	if err := stmt.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repo) ListByStudentSession(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) ([]*domain.FeeTransaction, error) {
	var txns []*domain.FeeTransaction
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND session_id = ?", tenantID, studentID, sessionID).
		Order("payment_date asc, id asc").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repo) MarkReversed(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, reversedBy string) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.FeeTransaction{}).
		Where("tenant_id = ? AND id = ? AND reversed_by IS NULL", tenantID, id).
		Update("reversed_by", reversedBy)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
