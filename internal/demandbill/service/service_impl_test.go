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
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/internal/demandbill/domain"
	"github.com/smallbiznis/bursary/internal/demandbill/repository"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	discountrepo "github.com/smallbiznis/bursary/internal/discount/repository"
	feestructuredomain "github.com/smallbiznis/bursary/internal/feestructure/domain"
	feestructurerepo "github.com/smallbiznis/bursary/internal/feestructure/repository"
	feestructureservice "github.com/smallbiznis/bursary/internal/feestructure/service"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	feetyperepo "github.com/smallbiznis/bursary/internal/feetype/repository"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/bursary/internal/ledger/service"
	"github.com/smallbiznis/bursary/internal/migration"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	classrepo "github.com/smallbiznis/bursary/internal/schoolclass/repository"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	studentrepo "github.com/smallbiznis/bursary/internal/student/repository"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSession snowflake.ID = 10
	feeTuition  snowflake.ID = 100
	feeAnnual   snowflake.ID = 101
	studentAsha snowflake.ID = 300
	studentRavi snowflake.ID = 301
)

var testNow = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWithLateFee(t, nil)
}

func newFixtureWithLateFee(t *testing.T, lateFee domain.LateFeePolicy) fixture {
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
	require.NoError(t, conn.Create(&classdomain.SchoolClass{
		ID: 20, TenantID: 1, Name: "Class 1", DisplayName: "Class 1", Order: 1,
		CreatedAt: testNow, UpdatedAt: testNow,
	}).Error)
	monthly := feetypedomain.FrequencyMonthly
	yearly := feetypedomain.FrequencyYearly
	for _, ft := range []feetypedomain.FeeType{
		{ID: feeTuition, Name: "Tuition Fee", Code: "tuition-fee", IsActive: true, Frequency: &monthly},
		{ID: feeAnnual, Name: "Annual Fee", Code: "annual-fee", IsActive: true, Frequency: &yearly},
	} {
		ft.TenantID = 1
		ft.CreatedAt = testNow
		ft.UpdatedAt = testNow
		require.NoError(t, conn.Create(&ft).Error)
	}
	for _, st := range []studentdomain.StudentDetails{
		{ID: studentAsha, AdmissionNo: "ADM-1", Name: "Asha", Section: "A"},
		{ID: studentRavi, AdmissionNo: "ADM-2", Name: "Ravi", Section: "B"},
	} {
		st.TenantID = 1
		st.SessionID = testSession
		st.ClassName = "Class 1"
		st.Status = studentdomain.StatusActive
		st.CreatedAt = testNow
		st.UpdatedAt = testNow
		require.NoError(t, conn.Create(&st).Error)
	}

	structures := feestructureservice.New(feestructureservice.Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        feestructurerepo.Provide(),
		SessionRepo: sessionrepo.Provide(),
		ClassRepo:   classrepo.Provide(conn),
		FeeTypeRepo: feetyperepo.Provide(),
	})
	_, err = structures.Upsert(tenantCtx(), feestructuredomain.UpsertRequest{
		SessionID: testSession,
		ClassName: "Class 1",
		Items: []feestructuredomain.ItemInput{
			{FeeTypeID: feeTuition, Amount: decimal.NewFromInt(1500)},
			{FeeTypeID: feeAnnual, Amount: decimal.NewFromInt(2000)},
		},
	})
	require.NoError(t, err)

	billing := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	if lateFee == nil {
		lateFee = NewFlatLateFeePolicy(billing)
	}
	svc := New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fakeClock,
		Billing:      billing,
		Repo:         repository.Provide(),
		Structures:   structures,
		DiscountRepo: discountrepo.Provide(),
		StudentRepo:  studentrepo.Provide(),
		SessionRepo:  sessionrepo.Provide(),
		Ledger: ledgerservice.NewService(ledgerservice.Params{
			DB:    conn,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: fakeClock,
		}),
		LateFee: lateFee,
	})
	return fixture{svc: svc, db: conn, clock: fakeClock}
}

func tenantCtx() context.Context {
	return tenantcontext.WithActor(tenantcontext.WithTenantID(context.Background(), 1), "accounts")
}

func studentID(id snowflake.ID) *snowflake.ID {
	return &id
}

func TestGenerateForClassAppliesDiscounts(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx()

	require.NoError(t, f.db.Create(&discountdomain.StudentFeeDiscount{
		ID: 500, TenantID: 1, StudentID: studentAsha, FeeTypeID: feeTuition, SessionID: testSession,
		DiscountType: discountdomain.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(500),
		Reason: "sibling", ApprovedBy: "principal", CreatedAt: testNow, UpdatedAt: testNow,
	}).Error)

	result, err := f.svc.Generate(ctx, domain.GenerateRequest{
		ClassName: "Class 1",
		SessionID: testSession,
		Month:     4,
		Year:      2025,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Generated)
	require.Len(t, result.Bills, 2)

	asha := result.Bills[0]
	assert.Equal(t, studentAsha, asha.StudentID)
	assert.Equal(t, domain.BillStatusPending, asha.Status)
	assert.Equal(t, "accounts", asha.GeneratedBy)
	assert.Equal(t, "3500.00", asha.TotalAmount.StringFixed(2))
	assert.Equal(t, "500.00", asha.Discount.StringFixed(2))
	assert.Equal(t, "3000.00", asha.NetAmount.StringFixed(2))
	assert.Equal(t, time.Date(2025, 4, 10, 23, 59, 59, 0, time.UTC), asha.DueDate)
	assert.Contains(t, asha.BillNo, "BILL-202504-")
	assert.Equal(t, "3500.00", result.Bills[1].NetAmount.StringFixed(2))

	stored, err := f.svc.Get(ctx, asha.BillNo)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Tuition Fee", stored.Items[0].FeeTypeName)
	assert.Equal(t, "500.00", stored.Items[0].DiscountAmount.StringFixed(2))

	var entries int64
	require.NoError(t, f.db.Model(&ledgerdomain.LedgerEntry{}).
		Where("source_type = ?", ledgerdomain.SourceTypeDemandBill).
		Count(&entries).Error)
	assert.Equal(t, int64(2), entries)

	again, err := f.svc.Generate(ctx, domain.GenerateRequest{
		ClassName: "Class 1",
		SessionID: testSession,
		Month:     4,
		Year:      2025,
	})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, 0, again.Generated)
	assert.Equal(t, 2, again.Failed)
	for _, item := range again.Errors {
		assert.Equal(t, "bill_exists", item.Code)
	}
}

func TestGenerateBillsYearlyFeesOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx()

	for _, month := range []int{4, 5} {
		result, err := f.svc.Generate(ctx, domain.GenerateRequest{
			StudentID: studentID(studentRavi),
			SessionID: testSession,
			Month:     month,
			Year:      2025,
		})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	list, err := f.svc.List(ctx, domain.ListRequest{ListFilter: domain.ListFilter{StudentID: studentID(studentRavi), Month: 5}})
	require.NoError(t, err)
	require.Len(t, list.Bills, 1)
	assert.Equal(t, "1500.00", list.Bills[0].TotalAmount.StringFixed(2))
	require.Len(t, list.Bills[0].Items, 1)
	assert.Equal(t, feeTuition, list.Bills[0].Items[0].FeeTypeID)
}

func TestGenerateCarriesForwardDuesWithLateFee(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx()

	april, err := f.svc.Generate(ctx, domain.GenerateRequest{
		StudentID: studentID(studentAsha),
		SessionID: testSession,
		Month:     4,
		Year:      2025,
	})
	require.NoError(t, err)
	require.Len(t, april.Bills, 1)
	aprilNo := april.Bills[0].BillNo

	f.clock.Set(time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC))
	may, err := f.svc.Generate(ctx, domain.GenerateRequest{
		StudentID:        studentID(studentAsha),
		SessionID:        testSession,
		Month:            5,
		Year:             2025,
		AutoLateFee:      true,
		CarryForwardDues: true,
	})
	require.NoError(t, err)
	require.Len(t, may.Bills, 1)
	bill := may.Bills[0]
	assert.Equal(t, "1500.00", bill.TotalAmount.StringFixed(2))
	assert.Equal(t, "100.00", bill.LateFee.StringFixed(2))
	assert.Equal(t, "3500.00", bill.CarriedDues.StringFixed(2))
	assert.Equal(t, "3500.00", bill.PreviousDues.StringFixed(2))
	assert.Equal(t, "5100.00", bill.NetAmount.StringFixed(2))

	carried, err := f.svc.Get(ctx, aprilNo)
	require.NoError(t, err)
	require.NotNil(t, carried.CarriedForwardTo)
	assert.Equal(t, bill.BillNo, *carried.CarriedForwardTo)

	_, err = f.svc.Cancel(ctx, aprilNo, "duplicate")
	assert.ErrorIs(t, err, domain.ErrBillCarriedForward)
	_, err = f.svc.MarkSent(ctx, aprilNo)
	assert.ErrorIs(t, err, domain.ErrBillCarriedForward)

	cancelled, err := f.svc.Cancel(ctx, bill.BillNo, "wrong late fee")
	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)

	released, err := f.svc.Get(ctx, aprilNo)
	require.NoError(t, err)
	assert.Nil(t, released.CarriedForwardTo)

	_, err = f.svc.Cancel(ctx, bill.BillNo, "")
	assert.ErrorIs(t, err, domain.ErrBillCancelled)
	_, err = f.svc.MarkSent(ctx, bill.BillNo)
	assert.ErrorIs(t, err, domain.ErrBillNotSendable)

	var reversals int64
	require.NoError(t, f.db.Model(&ledgerdomain.LedgerEntry{}).
		Where("source_type = ? AND source_id = ?", ledgerdomain.SourceTypeDemandBillCancel, bill.ID.String()).
		Count(&reversals).Error)
	assert.Equal(t, int64(1), reversals)
}

func TestMarkSentAndOverdueSweep(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx()

	result, err := f.svc.Generate(ctx, domain.GenerateRequest{
		StudentIDs: []snowflake.ID{studentAsha, studentRavi, 999},
		SessionID:  testSession,
		Month:      4,
		Year:       2025,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "999", result.Errors[0].ID)
	assert.Equal(t, "student_not_found", result.Errors[0].Code)

	sent, err := f.svc.MarkSent(ctx, result.Bills[0].BillNo)
	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	sweep, err := f.svc.MarkOverdue(ctx, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, sweep.Updated)

	f.clock.Set(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	sweep, err = f.svc.MarkOverdue(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, sweep.Updated)
	assert.Len(t, sweep.BillNos, 2)

	overdue, err := f.svc.List(ctx, domain.ListRequest{ListFilter: domain.ListFilter{Status: domain.BillStatusOverdue}})
	require.NoError(t, err)
	assert.Len(t, overdue.Bills, 2)

	sweep, err = f.svc.MarkOverdue(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, sweep.Updated)
}

// cancelOnCall cancels the batch context while the nth bill is being built.
type cancelOnCall struct {
	cancel context.CancelFunc
	nth    int
	calls  int
}

func (p *cancelOnCall) LateFee(domain.LateFeeInput) decimal.Decimal {
	p.calls++
	if p.calls == p.nth {
		p.cancel()
	}
	return decimal.Zero
}

func TestGenerateStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(tenantCtx())
	defer cancel()
	policy := &cancelOnCall{cancel: cancel, nth: 2}
	f := newFixtureWithLateFee(t, policy)

	result, err := f.svc.Generate(ctx, domain.GenerateRequest{
		ClassName:   "Class 1",
		SessionID:   testSession,
		Month:       4,
		Year:        2025,
		AutoLateFee: true,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, studentRavi.String(), result.Errors[0].ID)
	assert.Equal(t, apperr.KindCancelled, result.Errors[0].Kind)
	assert.Equal(t, "cancelled", result.Errors[0].Code)

	var bills []domain.DemandBill
	require.NoError(t, f.db.Where("tenant_id = ?", 1).Find(&bills).Error)
	require.Len(t, bills, 1)
	assert.Equal(t, studentAsha, bills[0].StudentID)
}

func TestGenerateWithoutStructureYieldsEmptyBill(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx()

	require.NoError(t, f.db.Create(&classdomain.SchoolClass{
		ID: 21, TenantID: 1, Name: "Class 2", DisplayName: "Class 2", Order: 2,
		CreatedAt: testNow, UpdatedAt: testNow,
	}).Error)
	require.NoError(t, f.db.Create(&studentdomain.StudentDetails{
		ID: 302, TenantID: 1, AdmissionNo: "ADM-3", Name: "Meera", SessionID: testSession,
		ClassName: "Class 2", Section: "A", Status: studentdomain.StatusActive,
		CreatedAt: testNow, UpdatedAt: testNow,
	}).Error)

	result, err := f.svc.Generate(ctx, domain.GenerateRequest{
		StudentIDs: []snowflake.ID{302},
		SessionID:  testSession,
		Month:      4,
		Year:       2025,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Generated)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Bills, 1)

	bill := result.Bills[0]
	assert.Empty(t, bill.Items)
	assert.True(t, bill.TotalAmount.IsZero())
	assert.True(t, bill.NetAmount.IsZero())
	assert.Equal(t, domain.BillStatusPending, bill.Status)
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := tenantCtx()

	cases := []struct {
		name string
		req  domain.GenerateRequest
		want error
	}{
		{"two targets", domain.GenerateRequest{StudentID: studentID(studentAsha), ClassName: "Class 1", SessionID: testSession, Month: 4, Year: 2025}, domain.ErrInvalidTarget},
		{"no target", domain.GenerateRequest{SessionID: testSession, Month: 4, Year: 2025}, domain.ErrInvalidTarget},
		{"section without class", domain.GenerateRequest{Section: "A", StudentIDs: []snowflake.ID{studentAsha}, SessionID: testSession, Month: 4, Year: 2025}, domain.ErrInvalidTarget},
		{"bad month", domain.GenerateRequest{ClassName: "Class 1", SessionID: testSession, Month: 13, Year: 2025}, domain.ErrInvalidPeriod},
		{"missing session", domain.GenerateRequest{ClassName: "Class 1", Month: 4, Year: 2025}, domain.ErrInvalidSession},
		{"unknown session", domain.GenerateRequest{ClassName: "Class 1", SessionID: 77, Month: 4, Year: 2025}, sessiondomain.ErrNotFound},
		{"unknown student", domain.GenerateRequest{StudentID: studentID(999), SessionID: testSession, Month: 4, Year: 2025}, domain.ErrStudentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Generate(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.Get(ctx, "BILL-000000-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.List(ctx, domain.ListRequest{ListFilter: domain.ListFilter{Status: "DRAFT"}})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDefaultDueDateClampsToMonth(t *testing.T) {
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC), defaultDueDate(2025, 2, 31))
	assert.Equal(t, time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC), defaultDueDate(2025, 6, 0))
}

func TestFlatLateFeePolicy(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.LateFee.GraceDays = 5
	policy := NewFlatLateFeePolicy(config.NewStaticBillingConfigHolder(cfg))

	due := time.Date(2025, 4, 10, 23, 59, 59, 0, time.UTC)
	unpaid := &domain.DemandBill{DueDate: due, NetAmount: decimal.NewFromInt(100), PaidAmount: decimal.Zero}

	inGrace := policy.LateFee(domain.LateFeeInput{Now: due.AddDate(0, 0, 3), PriorUnpaid: []*domain.DemandBill{unpaid}})
	assert.True(t, inGrace.IsZero())

	late := policy.LateFee(domain.LateFeeInput{Now: due.AddDate(0, 0, 6), PriorUnpaid: []*domain.DemandBill{unpaid}})
	assert.Equal(t, "100.00", late.StringFixed(2))

	settled := &domain.DemandBill{DueDate: due, NetAmount: decimal.NewFromInt(100), PaidAmount: decimal.NewFromInt(100)}
	none := policy.LateFee(domain.LateFeeInput{Now: due.AddDate(0, 1, 0), PriorUnpaid: []*domain.DemandBill{settled}})
	assert.True(t, none.IsZero())
}
