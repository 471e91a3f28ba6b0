package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/internal/demandbill/domain"
	"github.com/smallbiznis/bursary/pkg/db/option"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.DemandBill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []*domain.DemandBillItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) FindByNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billNo string) (*domain.DemandBill, error) {
	return r.findByNo(ctx, db, tenantID, billNo, false)
}

func (r *repo) FindByNoForUpdate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billNo string) (*domain.DemandBill, error) {
	return r.findByNo(ctx, db, tenantID, billNo, true)
}

func (r *repo) findByNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billNo string, lock bool) (*domain.DemandBill, error) {
	var bill domain.DemandBill
	stmt := db.WithContext(ctx)
	if lock {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Where("tenant_id = ? AND bill_no = ?", tenantID, billNo).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID, month, year int) (*domain.DemandBill, error) {
	var bill domain.DemandBill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND session_id = ? AND month = ? AND year = ?",
			tenantID, studentID, sessionID, month, year).
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billIDs []snowflake.ID) ([]*domain.DemandBillItem, error) {
	if len(billIDs) == 0 {
		return nil, nil
	}
	var items []*domain.DemandBillItem
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND bill_id IN ?", tenantID, billIDs).
		Order("bill_id asc, position asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.DemandBill, error) {
	stmt := db.WithContext(ctx).Model(&domain.DemandBill{}).Where("tenant_id = ?", tenantID)
	if filter.SessionID != nil {
		stmt = stmt.Where("session_id = ?", *filter.SessionID)
	}
	if filter.StudentID != nil {
		stmt = stmt.Where("student_id = ?", *filter.StudentID)
	}
	if className := strings.TrimSpace(filter.ClassName); className != "" {
		stmt = stmt.Where("class_name = ?", className)
	}
	if filter.Month > 0 {
		stmt = stmt.Where("month = ?", filter.Month)
	}
	if filter.Year > 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt).Order("created_at desc, id desc")

	var bills []*domain.DemandBill
	if err := stmt.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListByStudentSession(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) ([]*domain.DemandBill, error) {
	var bills []*domain.DemandBill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND session_id = ?", tenantID, studentID, sessionID).
		Order("year asc, month asc").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListBySession(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) ([]*domain.DemandBill, error) {
	var bills []*domain.DemandBill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListOpenBefore(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID, period int) ([]*domain.DemandBill, error) {
	var candidates []*domain.DemandBill
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND student_id = ? AND session_id = ?", tenantID, studentID, sessionID).
		Where("(year * 12 + month) < ?", period).
		Where("status NOT IN ?", []domain.BillStatus{domain.BillStatusCancelled, domain.BillStatusPaid}).
		Where("carried_forward_to IS NULL").
		Order("year asc, month asc").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	open := make([]*domain.DemandBill, 0, len(candidates))
	for _, bill := range candidates {
		if bill.Outstanding().IsPositive() {
			open = append(open, bill)
		}
	}
	return open, nil
}

func (r *repo) BilledFeeTypes(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) (map[snowflake.ID]struct{}, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Table("demand_bill_items AS i").
		Joins("JOIN demand_bills AS b ON b.id = i.bill_id AND b.tenant_id = i.tenant_id").
		Where("b.tenant_id = ? AND b.student_id = ? AND b.session_id = ? AND b.status <> ?",
			tenantID, studentID, sessionID, domain.BillStatusCancelled).
		Distinct("i.fee_type_id").
		Pluck("i.fee_type_id", &ids).Error
	if err != nil {
		return nil, err
	}
	billed := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		billed[snowflake.ID(id)] = struct{}{}
	}
	return billed, nil
}

func (r *repo) AvailableAdvance(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) (decimal.Decimal, error) {
	var received decimal.NullDecimal
	err := db.WithContext(ctx).Raw(
		`SELECT SUM(amount) FROM fee_transactions
		WHERE tenant_id = ? AND student_id = ? AND session_id = ? AND bill_no IS NULL`,
		tenantID, studentID, sessionID,
	).Row().Scan(&received)
	if err != nil {
		return decimal.Zero, err
	}

	var applied decimal.NullDecimal
	err = db.WithContext(ctx).Raw(
		`SELECT SUM(advance_applied) FROM demand_bills
		WHERE tenant_id = ? AND student_id = ? AND session_id = ? AND status <> ?`,
		tenantID, studentID, sessionID, domain.BillStatusCancelled,
	).Row().Scan(&applied)
	if err != nil {
		return decimal.Zero, err
	}

	available := received.Decimal.Sub(applied.Decimal)
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available.Round(2), nil
}

func (r *repo) MarkCarried(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billIDs []snowflake.ID, carriedTo string, now time.Time) error {
	if len(billIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.DemandBill{}).
		Where("tenant_id = ? AND id IN ? AND carried_forward_to IS NULL", tenantID, billIDs).
		Updates(map[string]any{
			"carried_forward_to": carriedTo,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         now,
		}).Error
}

func (r *repo) ReleaseCarried(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, carriedTo string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.DemandBill{}).
		Where("tenant_id = ? AND carried_forward_to = ?", tenantID, carriedTo).
		Updates(map[string]any{
			"carried_forward_to": nil,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         now,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, bill *domain.DemandBill) error {
	result := db.WithContext(ctx).
		Model(&domain.DemandBill{}).
		Where("tenant_id = ? AND id = ? AND version = ?", bill.TenantID, bill.ID, bill.Version).
		Updates(map[string]any{
			"paid_amount":   bill.PaidAmount,
			"status":        bill.Status,
			"sent_at":       bill.SentAt,
			"cancelled_at":  bill.CancelledAt,
			"cancel_reason": bill.CancelReason,
			"version":       bill.Version + 1,
			"updated_at":    bill.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	bill.Version++
	return nil
}

func (r *repo) ListOverdueCandidates(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*domain.DemandBill, error) {
	var bills []*domain.DemandBill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND carried_forward_to IS NULL", tenantID,
			[]domain.BillStatus{domain.BillStatusPending, domain.BillStatusSent}).
		Order("due_date asc, id asc").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}
