package reference

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct{}

func NewRepository() domain.Repository {
	return &repository{}
}

func (r *repository) FirstUsage(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, value any, usages []domain.Usage) (*domain.Usage, error) {
	for _, usage := range usages {
		var found int64
		err := db.WithContext(ctx).
			Raw(fmt.Sprintf(`SELECT COUNT(1) FROM (SELECT 1 FROM %s WHERE tenant_id = ? AND %s = ? LIMIT 1) AS ref`, usage.Table, usage.Column), tenantID, value).
			Scan(&found).Error
		if err != nil {
			return nil, err
		}
		if found > 0 {
			matched := usage
			return &matched, nil
		}
	}
	return nil, nil
}
