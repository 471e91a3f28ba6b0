package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/internal/demandbill/domain"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRejectsStaleVersion(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.DemandBill{}))
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, conn, &domain.DemandBill{
		ID: 1, TenantID: 1, BillNo: "BILL-202504-1", StudentID: 300, SessionID: 10,
		Month: 4, Year: 2025, ClassName: "Class 1",
		BillDate:       now,
		DueDate:        now.AddDate(0, 0, 9),
		TotalAmount:    decimal.NewFromInt(1000),
		CarriedDues:    decimal.Zero,
		AdvanceApplied: decimal.Zero,
		PreviousDues:   decimal.Zero,
		LateFee:        decimal.Zero,
		Discount:       decimal.Zero,
		NetAmount:      decimal.NewFromInt(1000),
		PaidAmount:     decimal.Zero,
		Status:         domain.BillStatusPending,
		GeneratedBy:    "system",
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))

	first, err := repo.FindByNoForUpdate(ctx, conn, 1, "BILL-202504-1")
	require.NoError(t, err)
	stale, err := repo.FindByNo(ctx, conn, 1, "BILL-202504-1")
	require.NoError(t, err)

	first.PaidAmount = decimal.NewFromInt(600)
	first.Status = domain.BillStatusPartiallyPaid
	require.NoError(t, repo.Save(ctx, conn, first))
	assert.Equal(t, int64(2), first.Version)

	stale.PaidAmount = decimal.NewFromInt(400)
	err = repo.Save(ctx, conn, stale)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	stored, err := repo.FindByNo(ctx, conn, 1, "BILL-202504-1")
	require.NoError(t, err)
	assert.Equal(t, "600.00", stored.PaidAmount.StringFixed(2))
	assert.Equal(t, int64(2), stored.Version)
}
