package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/internal/clock"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (ledgerdomain.Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)),
	}), conn
}

func billPosting(tenantID snowflake.ID, billNo string) ledgerdomain.Posting {
	return ledgerdomain.Posting{
		TenantID:   tenantID,
		SourceType: ledgerdomain.SourceTypeDemandBill,
		SourceID:   billNo,
		OccurredAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []ledgerdomain.PostingLine{
			{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: decimal.RequireFromString("1000")},
			{Account: ledgerdomain.AccountCodeDiscountAllowed, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: decimal.RequireFromString("500")},
			{Account: ledgerdomain.AccountCodeFeeIncome, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: decimal.RequireFromString("1500")},
		},
	}
}

func TestPostIsIdempotentPerSource(t *testing.T) {
	svc, conn := newTestLedger(t)
	ctx := context.Background()
	tenantID := snowflake.ID(10)

	posted, err := svc.Post(ctx, conn, billPosting(tenantID, "BILL-202504-1"))
	require.NoError(t, err)
	assert.True(t, posted)

	posted, err = svc.Post(ctx, conn, billPosting(tenantID, "BILL-202504-1"))
	require.NoError(t, err)
	assert.False(t, posted)

	var entries int64
	require.NoError(t, conn.Model(&ledgerdomain.LedgerEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)

	var accounts int64
	require.NoError(t, conn.Model(&ledgerdomain.LedgerAccount{}).Where("tenant_id = ?", tenantID).Count(&accounts).Error)
	assert.Equal(t, int64(len(ledgerdomain.DefaultAccounts)), accounts)

	balance, err := svc.Balance(ctx, tenantID, ledgerdomain.AccountCodeFeesReceivable)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", balance.StringFixed(2))
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	svc, conn := newTestLedger(t)
	posting := billPosting(snowflake.ID(10), "BILL-202504-2")
	posting.Lines[2].Amount = decimal.RequireFromString("1400")

	_, err := svc.Post(context.Background(), conn, posting)
	assert.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPostSkipsZeroLines(t *testing.T) {
	svc, conn := newTestLedger(t)
	posting := billPosting(snowflake.ID(10), "BILL-202504-3")
	posting.Lines[1].Amount = decimal.Zero
	posting.Lines[2].Amount = decimal.RequireFromString("1000")

	posted, err := svc.Post(context.Background(), conn, posting)
	require.NoError(t, err)
	assert.True(t, posted)

	var lines int64
	require.NoError(t, conn.Model(&ledgerdomain.LedgerEntryLine{}).Count(&lines).Error)
	assert.Equal(t, int64(2), lines)
}

func TestPaymentThenReversalNetsToZero(t *testing.T) {
	svc, conn := newTestLedger(t)
	ctx := context.Background()
	tenantID := snowflake.ID(11)
	lines := []ledgerdomain.PostingLine{
		{Account: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: decimal.RequireFromString("600")},
		{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: decimal.RequireFromString("600")},
	}

	_, err := svc.Post(ctx, conn, ledgerdomain.Posting{
		TenantID: tenantID, SourceType: ledgerdomain.SourceTypeFeePayment, SourceID: "01J0000000000000000000000A",
		OccurredAt: time.Now(), Lines: lines,
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, conn, ledgerdomain.Posting{
		TenantID: tenantID, SourceType: ledgerdomain.SourceTypeFeePaymentReversal, SourceID: "01J0000000000000000000000B",
		OccurredAt: time.Now(), Lines: ledgerdomain.Reverse(lines),
	})
	require.NoError(t, err)

	cash, err := svc.Balance(ctx, tenantID, ledgerdomain.AccountCodeCash)
	require.NoError(t, err)
	assert.True(t, cash.IsZero())
}
