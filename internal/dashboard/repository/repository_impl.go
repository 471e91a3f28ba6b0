package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/dashboard/domain"
	feepaymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) ([]*feepaymentdomain.FeeTransaction, error) {
	var txns []*feepaymentdomain.FeeTransaction
	err := db.WithContext(ctx).
		Select("id", "payment_mode", "amount", "payment_date", "kind").
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
