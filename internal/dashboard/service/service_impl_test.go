package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	sessionrepo "github.com/smallbiznis/bursary/internal/academicsession/repository"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/dashboard/domain"
	"github.com/smallbiznis/bursary/internal/dashboard/repository"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	billrepo "github.com/smallbiznis/bursary/internal/demandbill/repository"
	feepaymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/bursary/internal/ledger/service"
	"github.com/smallbiznis/bursary/internal/migration"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	studentrepo "github.com/smallbiznis/bursary/internal/student/repository"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSession snowflake.ID = 10

var testNow = time.Date(2025, 5, 15, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, ledgerdomain.Service) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(testNow)

	require.NoError(t, conn.Create(&sessiondomain.AcademicSession{
		ID: testSession, TenantID: 1, Name: "2025-26",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		CreatedAt: testNow, UpdatedAt: testNow,
	}).Error)

	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	})
	return New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Repo:        repository.Provide(),
		BillRepo:    billrepo.Provide(),
		StudentRepo: studentrepo.Provide(),
		SessionRepo: sessionrepo.Provide(),
		Ledger:      ledger,
	}), conn, ledger
}

func insertBill(t *testing.T, conn *gorm.DB, id snowflake.ID, month int, total, discount, paid string, status billdomain.BillStatus) {
	t.Helper()
	totalAmount := decimal.RequireFromString(total)
	discountAmount := decimal.RequireFromString(discount)
	require.NoError(t, conn.Create(&billdomain.DemandBill{
		ID: id, TenantID: 1, BillNo: "BILL-" + id.String(), StudentID: 300 + id, SessionID: testSession,
		Month: month, Year: 2025, ClassName: "Class 1",
		BillDate:       time.Date(2025, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2025, time.Month(month), 10, 0, 0, 0, 0, time.UTC),
		TotalAmount:    totalAmount,
		CarriedDues:    decimal.Zero,
		AdvanceApplied: decimal.Zero,
		PreviousDues:   decimal.Zero,
		LateFee:        decimal.Zero,
		Discount:       discountAmount,
		NetAmount:      totalAmount.Sub(discountAmount),
		PaidAmount:     decimal.RequireFromString(paid),
		Status:         status,
		GeneratedBy:    "system",
		Version:        1,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}).Error)
}

func insertPayment(t *testing.T, conn *gorm.DB, id snowflake.ID, amount string, mode feepaymentdomain.PaymentMode, paidAt time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&feepaymentdomain.FeeTransaction{
		ID: id, TenantID: 1, TransactionID: "TXN-" + id.String(), ReceiptNo: "RCPT-" + id.String(),
		StudentID: 301, SessionID: testSession, Kind: feepaymentdomain.TransactionKindPayment,
		Amount: decimal.RequireFromString(amount), PaymentMode: mode, PaymentDate: paidAt,
		CollectedBy: "cashier", CreatedAt: paidAt,
	}).Error)
}

func TestSummaryAggregatesSession(t *testing.T) {
	svc, conn, ledger := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), 1)

	for i, status := range []studentdomain.Status{studentdomain.StatusActive, studentdomain.StatusActive, studentdomain.StatusPassed} {
		require.NoError(t, conn.Create(&studentdomain.StudentDetails{
			ID: snowflake.ID(301 + i), TenantID: 1, AdmissionNo: "ADM-" + snowflake.ID(i).String(), Name: "Student",
			SessionID: testSession, ClassName: "Class 1", Status: status, CreatedAt: testNow, UpdatedAt: testNow,
		}).Error)
	}
	insertBill(t, conn, 1, 4, "1000", "0", "600", billdomain.BillStatusPartiallyPaid)
	insertBill(t, conn, 2, 4, "500", "0", "0", billdomain.BillStatusCancelled)
	insertBill(t, conn, 3, 5, "800", "100", "0", billdomain.BillStatusPending)
	insertPayment(t, conn, 50, "600", feepaymentdomain.PaymentModeCash, testNow.Add(-time.Hour))
	insertPayment(t, conn, 51, "150", feepaymentdomain.PaymentModeUPI, time.Date(2025, 4, 20, 10, 0, 0, 0, time.UTC))

	for _, posting := range []ledgerdomain.Posting{
		{TenantID: 1, SourceType: ledgerdomain.SourceTypeDemandBill, SourceID: "1", OccurredAt: testNow, Lines: []ledgerdomain.PostingLine{
			{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: decimal.NewFromInt(1000)},
			{Account: ledgerdomain.AccountCodeFeeIncome, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: decimal.NewFromInt(1000)},
		}},
		{TenantID: 1, SourceType: ledgerdomain.SourceTypeFeePayment, SourceID: "50", OccurredAt: testNow, Lines: []ledgerdomain.PostingLine{
			{Account: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: decimal.NewFromInt(600)},
			{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: decimal.NewFromInt(600)},
		}},
	} {
		_, err := ledger.Post(ctx, nil, posting)
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, "1800.00", summary.TotalBilled.StringFixed(2))
	assert.Equal(t, "100.00", summary.TotalDiscount.StringFixed(2))
	assert.Equal(t, "1100.00", summary.TotalOutstanding.StringFixed(2))
	assert.Equal(t, "750.00", summary.TotalCollected.StringFixed(2))
	assert.Equal(t, "600.00", summary.CollectedToday.StringFixed(2))
	assert.Equal(t, map[string]int{"PARTIALLY_PAID": 1, "CANCELLED": 1, "PENDING": 1}, summary.BillsByStatus)
	assert.Equal(t, "600.00", summary.CollectionsByMode["CASH"].StringFixed(2))
	assert.Equal(t, "150.00", summary.CollectionsByMode["UPI"].StringFixed(2))
	require.Len(t, summary.MonthlyCollections, 12)
	assert.Equal(t, "150.00", summary.MonthlyCollections[0].Amount.StringFixed(2))
	assert.Equal(t, 5, summary.MonthlyCollections[1].Month)
	assert.Equal(t, "600.00", summary.MonthlyCollections[1].Amount.StringFixed(2))
	assert.Equal(t, int64(2), summary.ActiveStudents)
	assert.Equal(t, int64(1), summary.PassedStudents)
	assert.Equal(t, "400.00", summary.ReceivableBalance.StringFixed(2))
}

func TestSummaryValidatesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), 1)

	_, err := svc.Summary(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = svc.Summary(ctx, 99)
	assert.ErrorIs(t, err, sessiondomain.ErrNotFound)

	empty, err := svc.Summary(ctx, testSession)
	require.NoError(t, err)
	assert.True(t, empty.TotalBilled.IsZero())
	assert.True(t, empty.ReceivableBalance.IsZero())
	assert.Empty(t, empty.BillsByStatus)
}
