package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/feestructure/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, className string) (*domain.FeeStructure, error) {
	return r.findByKey(db.WithContext(ctx), tenantID, sessionID, className)
}

func (r *repo) FindByKeyForUpdate(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, className string) (*domain.FeeStructure, error) {
	return r.findByKey(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, sessionID, className)
}

func (r *repo) findByKey(stmt *gorm.DB, tenantID, sessionID snowflake.ID, className string) (*domain.FeeStructure, error) {
	var structure domain.FeeStructure
	err := stmt.
		Where("tenant_id = ? AND session_id = ? AND class_name = ?", tenantID, sessionID, className).
		First(&structure).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &structure, nil
}

func (r *repo) ListBySession(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) ([]*domain.FeeStructure, error) {
	var structures []*domain.FeeStructure
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("class_name asc").
		Find(&structures).Error
	if err != nil {
		return nil, err
	}
	return structures, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, structure *domain.FeeStructure) error {
	return db.WithContext(ctx).Create(structure).Error
}

func (r *repo) UpdateTotals(ctx context.Context, db *gorm.DB, structure *domain.FeeStructure) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_structures SET total_amount = ?, updated_by = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		structure.TotalAmount,
		structure.UpdatedBy,
		structure.UpdatedAt,
		structure.TenantID,
		structure.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.FeeStructure{}).Error
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, structureIDs []snowflake.ID) ([]*domain.FeeStructureItem, error) {
	if len(structureIDs) == 0 {
		return nil, nil
	}
	var items []*domain.FeeStructureItem
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND structure_id IN ?", tenantID, structureIDs).
		Order("structure_id asc, position asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []*domain.FeeStructureItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, tenantID, structureID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND structure_id = ?", tenantID, structureID).
		Delete(&domain.FeeStructureItem{}).Error
}
