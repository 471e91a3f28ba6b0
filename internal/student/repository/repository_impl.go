package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/student/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, student *domain.StudentDetails) error {
	return db.WithContext(ctx).Create(student).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.StudentDetails, error) {
	return r.findOne(db.WithContext(ctx), tenantID, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.StudentDetails, error) {
	return r.findOne(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *repo) findOne(stmt *gorm.DB, tenantID, id snowflake.ID) (*domain.StudentDetails, error) {
	var student domain.StudentDetails
	err := stmt.Where("tenant_id = ? AND id = ?", tenantID, id).First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) ([]*domain.StudentDetails, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []*domain.StudentDetails
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) ListByPlacement(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.PlacementFilter) ([]*domain.StudentDetails, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.StudentDetails{}).
		Where("tenant_id = ?", tenantID)
	if filter.SessionID != 0 {
		stmt = stmt.Where("session_id = ?", filter.SessionID)
	}
	if className := strings.TrimSpace(filter.ClassName); className != "" {
		stmt = stmt.Where("class_name = ?", className)
	}
	if section := strings.TrimSpace(filter.Section); section != "" {
		stmt = stmt.Where("section = ?", section)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var students []*domain.StudentDetails
	if err := stmt.Order("section asc, name asc, id asc").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) UpdatePlacement(ctx context.Context, db *gorm.DB, student *domain.StudentDetails) error {
	return db.WithContext(ctx).Exec(
		`UPDATE student_details
		SET session_id = ?, class_name = ?, section = ?, status = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		student.SessionID,
		student.ClassName,
		student.Section,
		string(student.Status),
		student.UpdatedAt,
		student.TenantID,
		student.ID,
	).Error
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, history *domain.StudentAcademicHistory) error {
	return db.WithContext(ctx).Create(history).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, tenantID, studentID snowflake.ID) ([]*domain.StudentAcademicHistory, error) {
	var rows []*domain.StudentAcademicHistory
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID, studentID).
		Order("created_at asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) (map[domain.Status]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	stmt := db.WithContext(ctx).
		Model(&domain.StudentDetails{}).
		Select("status, COUNT(1) AS total").
		Where("tenant_id = ?", tenantID)
	if sessionID != 0 {
		stmt = stmt.Where("session_id = ?", sessionID)
	}
	if err := stmt.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.Status]int64, len(rows))
	for _, row := range rows {
		counts[domain.Status(row.Status)] = row.Total
	}
	return counts, nil
}
