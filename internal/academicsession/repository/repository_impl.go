package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/academicsession/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *domain.AcademicSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.AcademicSession, error) {
	var session domain.AcademicSession
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, name string) (*domain.AcademicSession, error) {
	var session domain.AcademicSession
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*domain.AcademicSession, error) {
	var sessions []*domain.AcademicSession
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date desc, id desc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.AcademicSession{}).Error
}

func (r *repo) LockPointer(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, actor string, now time.Time) (*domain.ActiveSessionPointer, bool, error) {
	seed := domain.ActiveSessionPointer{
		TenantID:    tenantID,
		SessionID:   sessionID,
		ActivatedBy: actor,
		ActivatedAt: now,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tenant_id"}}, DoNothing: true}).
		Create(&seed)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	var pointer domain.ActiveSessionPointer
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&pointer).Error
	if err != nil {
		return nil, false, err
	}
	return &pointer, created, nil
}

func (r *repo) FindPointer(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.ActiveSessionPointer, error) {
	var pointer domain.ActiveSessionPointer
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&pointer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pointer, nil
}

func (r *repo) UpdatePointer(ctx context.Context, db *gorm.DB, pointer *domain.ActiveSessionPointer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE active_session_pointers
		SET session_id = ?, activated_by = ?, activated_at = ?
		WHERE tenant_id = ?`,
		pointer.SessionID,
		pointer.ActivatedBy,
		pointer.ActivatedAt,
		pointer.TenantID,
	).Error
}

// SetActive flips every session of the tenant so only sessionID is active.
func (r *repo) SetActive(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID, now time.Time) error {
	if err := db.WithContext(ctx).Exec(
		`UPDATE academic_sessions SET is_active = ?, updated_at = ?
		WHERE tenant_id = ? AND is_active = ? AND id <> ?`,
		false, now, tenantID, true, sessionID,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`UPDATE academic_sessions SET is_active = ?, is_setup_mode = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		true, false, now, tenantID, sessionID,
	).Error
}
