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
	"github.com/smallbiznis/bursary/internal/feestructure/domain"
	"github.com/smallbiznis/bursary/internal/feestructure/repository"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	feetyperepo "github.com/smallbiznis/bursary/internal/feetype/repository"
	"github.com/smallbiznis/bursary/internal/migration"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	classrepo "github.com/smallbiznis/bursary/internal/schoolclass/repository"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionCurrent snowflake.ID = 10
	sessionNext    snowflake.ID = 11
	feeTuition     snowflake.ID = 100
	feeTransport   snowflake.ID = 101
	feeArchived    snowflake.ID = 102
)

var testNow = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	for i, id := range []snowflake.ID{sessionCurrent, sessionNext} {
		require.NoError(t, conn.Create(&sessiondomain.AcademicSession{
			ID: id, TenantID: 1, Name: id.String(),
			StartDate: time.Date(2025+i, 4, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026+i, 3, 31, 0, 0, 0, 0, time.UTC),
			CreatedAt: testNow, UpdatedAt: testNow,
		}).Error)
	}
	for i, name := range []string{"Class 1", "Class 2"} {
		require.NoError(t, conn.Create(&classdomain.SchoolClass{
			ID: snowflake.ID(200 + i), TenantID: 1, Name: name, DisplayName: name, Order: i + 1,
			CreatedAt: testNow, UpdatedAt: testNow,
		}).Error)
	}
	monthly := feetypedomain.FrequencyMonthly
	for _, ft := range []feetypedomain.FeeType{
		{ID: feeTuition, Name: "Tuition Fee", Code: "tuition-fee", IsActive: true, Frequency: &monthly},
		{ID: feeTransport, Name: "Transport Fee", Code: "transport-fee", IsActive: true},
		{ID: feeArchived, Name: "Old Fee", Code: "old-fee", IsActive: false},
	} {
		ft.TenantID = 1
		ft.CreatedAt = testNow
		ft.UpdatedAt = testNow
		require.NoError(t, conn.Create(&ft).Error)
	}

	return New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(testNow),
		Repo:        repository.Provide(),
		SessionRepo: sessionrepo.Provide(),
		ClassRepo:   classrepo.Provide(conn),
		FeeTypeRepo: feetyperepo.Provide(),
	}), conn
}

func tenantCtx() context.Context {
	return tenantcontext.WithActor(tenantcontext.WithTenantID(context.Background(), 1), "accounts")
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestUpsertReplacesItems(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := tenantCtx()

	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		SessionID: sessionCurrent,
		ClassName: "Class 1",
		Items: []domain.ItemInput{
			{FeeTypeID: feeTuition, Amount: amount("1500")},
			{FeeTypeID: feeTransport, Amount: amount("300"), IsOptional: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1800.00", first.TotalAmount.StringFixed(2))
	assert.Equal(t, "accounts", first.UpdatedBy)

	second, err := svc.Upsert(ctx, domain.UpsertRequest{
		SessionID: sessionCurrent,
		ClassName: "Class 1",
		Items:     []domain.ItemInput{{FeeTypeID: feeTuition, Amount: amount("1600")}},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "1600.00", second.TotalAmount.StringFixed(2))

	var items int64
	require.NoError(t, conn.Model(&domain.FeeStructureItem{}).Where("structure_id = ?", first.ID).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}

func TestUpsertValidatesItems(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx()

	cases := []struct {
		name  string
		class string
		items []domain.ItemInput
		want  error
	}{
		{"negative amount", "Class 1", []domain.ItemInput{{FeeTypeID: feeTuition, Amount: amount("-1")}}, domain.ErrInvalidAmount},
		{"duplicate fee type", "Class 1", []domain.ItemInput{{FeeTypeID: feeTuition, Amount: amount("1")}, {FeeTypeID: feeTuition, Amount: amount("2")}}, domain.ErrDuplicateFeeType},
		{"inactive fee type", "Class 1", []domain.ItemInput{{FeeTypeID: feeArchived, Amount: amount("1")}}, feetypedomain.ErrFeeTypeInactive},
		{"unknown fee type", "Class 1", []domain.ItemInput{{FeeTypeID: 999, Amount: amount("1")}}, feetypedomain.ErrNotFound},
		{"bad frequency", "Class 1", []domain.ItemInput{{FeeTypeID: feeTuition, Amount: amount("1"), Frequency: "fortnightly"}}, feetypedomain.ErrInvalidFrequency},
		{"unknown class", "Class 9", []domain.ItemInput{{FeeTypeID: feeTuition, Amount: amount("1")}}, classdomain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, domain.UpsertRequest{SessionID: sessionCurrent, ClassName: tc.class, Items: tc.items})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := svc.Upsert(ctx, domain.UpsertRequest{SessionID: 77, ClassName: "Class 1"})
	assert.ErrorIs(t, err, sessiondomain.ErrNotFound)
}

func TestResolveIsStableAndFallsBackToFeeTypeFrequency(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx()

	empty, err := svc.Resolve(ctx, sessionCurrent, "Class 2")
	require.NoError(t, err)
	assert.False(t, empty.Configured)
	assert.Empty(t, empty.Items)
	assert.True(t, empty.TotalAmount.IsZero())

	_, err = svc.Upsert(ctx, domain.UpsertRequest{
		SessionID: sessionCurrent,
		ClassName: "Class 1",
		Items: []domain.ItemInput{
			{FeeTypeID: feeTuition, Amount: amount("1500")},
			{FeeTypeID: feeTransport, Amount: amount("250.50"), Frequency: "Yearly"},
		},
	})
	require.NoError(t, err)

	first, err := svc.Resolve(ctx, sessionCurrent, "Class 1")
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, sessionCurrent, "Class 1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.True(t, first.Configured)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "Tuition Fee", first.Items[0].FeeTypeName)
	require.NotNil(t, first.Items[0].Frequency)
	assert.Equal(t, feetypedomain.FrequencyMonthly, *first.Items[0].Frequency)
	require.NotNil(t, first.Items[1].Frequency)
	assert.Equal(t, feetypedomain.FrequencyYearly, *first.Items[1].Frequency)
	assert.Equal(t, "1750.50", first.TotalAmount.StringFixed(2))
}

func TestCopyAppliesPercentageIncrease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{
		SessionID: sessionCurrent,
		ClassName: "Class 1",
		Items: []domain.ItemInput{
			{FeeTypeID: feeTuition, Amount: amount("1500")},
			{FeeTypeID: feeTransport, Amount: amount("1234.55")},
		},
	})
	require.NoError(t, err)

	result, err := svc.Copy(ctx, domain.CopyRequest{
		SourceSessionID:    sessionCurrent,
		TargetSessionID:    sessionNext,
		Classes:            []string{"Class 1", "Class 2", "Class 1"},
		PercentageIncrease: amount("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Class 1"}, result.Copied)
	assert.Equal(t, []string{"Class 2"}, result.Skipped)

	copied, err := svc.Resolve(ctx, sessionNext, "Class 1")
	require.NoError(t, err)
	require.Len(t, copied.Items, 2)
	assert.Equal(t, "1650.00", copied.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "1358.01", copied.Items[1].Amount.StringFixed(2))
	assert.Equal(t, "3008.01", copied.TotalAmount.StringFixed(2))

	_, err = svc.Copy(ctx, domain.CopyRequest{SourceSessionID: sessionCurrent, TargetSessionID: sessionCurrent})
	assert.ErrorIs(t, err, domain.ErrSameSession)
	_, err = svc.Copy(ctx, domain.CopyRequest{SourceSessionID: sessionCurrent, TargetSessionID: sessionNext, PercentageIncrease: amount("-101")})
	assert.ErrorIs(t, err, domain.ErrInvalidPercentage)
}

func TestListAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx()

	for _, className := range []string{"Class 1", "Class 2"} {
		_, err := svc.Upsert(ctx, domain.UpsertRequest{
			SessionID: sessionCurrent,
			ClassName: className,
			Items:     []domain.ItemInput{{FeeTypeID: feeTuition, Amount: amount("1000")}},
		})
		require.NoError(t, err)
	}

	structures, err := svc.List(ctx, sessionCurrent)
	require.NoError(t, err)
	require.Len(t, structures, 2)
	assert.Len(t, structures[0].Items, 1)

	require.NoError(t, svc.Delete(ctx, sessionCurrent, "Class 2"))
	assert.ErrorIs(t, svc.Delete(ctx, sessionCurrent, "Class 2"), domain.ErrStructureNotFound)

	structures, err = svc.List(ctx, sessionCurrent)
	require.NoError(t, err)
	assert.Len(t, structures, 1)
}
