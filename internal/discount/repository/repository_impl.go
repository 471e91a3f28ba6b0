package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/discount/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, discount *domain.StudentFeeDiscount) error {
	return db.WithContext(ctx).Create(discount).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.StudentFeeDiscount, error) {
	var discount domain.StudentFeeDiscount
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&discount).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, tenantID, studentID, feeTypeID, sessionID snowflake.ID) (*domain.StudentFeeDiscount, error) {
	var discount domain.StudentFeeDiscount
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND fee_type_id = ? AND session_id = ?", tenantID, studentID, feeTypeID, sessionID).
		First(&discount).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, discount *domain.StudentFeeDiscount) error {
	return db.WithContext(ctx).Exec(
		`UPDATE student_fee_discounts
		SET discount_type = ?, discount_value = ?, reason = ?, approved_by = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		string(discount.DiscountType),
		discount.DiscountValue,
		discount.Reason,
		discount.ApprovedBy,
		discount.UpdatedAt,
		discount.TenantID,
		discount.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.StudentFeeDiscount{}).Error
}

func (r *repo) ListByStudent(ctx context.Context, db *gorm.DB, tenantID, studentID snowflake.ID, sessionID *snowflake.ID) ([]*domain.DiscountView, error) {
	stmt := db.WithContext(ctx).
		Table("student_fee_discounts AS d").
		Select(`d.*, COALESCE(ft.name, '') AS fee_type_name, COALESCE(s.name, '') AS session_name`).
		Joins("LEFT JOIN fee_types ft ON ft.id = d.fee_type_id AND ft.tenant_id = d.tenant_id").
		Joins("LEFT JOIN academic_sessions s ON s.id = d.session_id AND s.tenant_id = d.tenant_id").
		Where("d.tenant_id = ? AND d.student_id = ?", tenantID, studentID)
	if sessionID != nil && *sessionID != 0 {
		stmt = stmt.Where("d.session_id = ?", *sessionID)
	}

	var views []*domain.DiscountView
	if err := stmt.Order("d.created_at asc, d.id asc").Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *repo) MapForStudent(ctx context.Context, db *gorm.DB, tenantID, studentID, sessionID snowflake.ID) (map[snowflake.ID]*domain.StudentFeeDiscount, error) {
	var rows []*domain.StudentFeeDiscount
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND session_id = ?", tenantID, studentID, sessionID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[snowflake.ID]*domain.StudentFeeDiscount, len(rows))
	for _, row := range rows {
		result[row.FeeTypeID] = row
	}
	return result, nil
}
