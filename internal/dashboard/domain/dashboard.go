package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	feepaymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"gorm.io/gorm"
)

type MonthlyCollection struct {
	Slot   int             `json:"slot"`
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type Summary struct {
	SessionID          snowflake.ID               `json:"session_id"`
	TotalBilled        decimal.Decimal            `json:"total_billed"`
	TotalDiscount      decimal.Decimal            `json:"total_discount"`
	TotalCollected     decimal.Decimal            `json:"total_collected"`
	TotalOutstanding   decimal.Decimal            `json:"total_outstanding"`
	BillsByStatus      map[string]int             `json:"bills_by_status"`
	CollectionsByMode  map[string]decimal.Decimal `json:"collections_by_mode"`
	CollectedToday     decimal.Decimal            `json:"collected_today"`
	MonthlyCollections []MonthlyCollection        `json:"monthly_collections"`
	ActiveStudents     int64                      `json:"active_students"`
	PassedStudents     int64                      `json:"passed_students"`
	ReceivableBalance  decimal.Decimal            `json:"receivable_balance"`
}

type Repository interface {
	ListTransactions(ctx context.Context, db *gorm.DB, tenantID, sessionID snowflake.ID) ([]*feepaymentdomain.FeeTransaction, error)
}

type Service interface {
	Summary(ctx context.Context, sessionID snowflake.ID) (Summary, error)
}

var ErrInvalidSession = apperr.Validation("invalid_session_id")
