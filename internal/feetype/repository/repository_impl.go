package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/feetype/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, feeType *domain.FeeType) error {
	return db.WithContext(ctx).Create(feeType).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.FeeType, error) {
	var feeType domain.FeeType
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&feeType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feeType, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, code string) (*domain.FeeType, error) {
	var feeType domain.FeeType
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&feeType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feeType, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]*domain.FeeType, error) {
	result := make(map[snowflake.ID]*domain.FeeType, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []*domain.FeeType
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, activeOnly bool) ([]*domain.FeeType, error) {
	stmt := db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var rows []*domain.FeeType
	if err := stmt.Order("name asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, feeType *domain.FeeType) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_types
		SET name = ?, code = ?, description = ?, is_active = ?, frequency = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		feeType.Name,
		feeType.Code,
		feeType.Description,
		feeType.IsActive,
		feeType.Frequency,
		feeType.UpdatedAt,
		feeType.TenantID,
		feeType.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.FeeType{}).Error
}
