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
	"github.com/smallbiznis/bursary/internal/discount/domain"
	"github.com/smallbiznis/bursary/internal/discount/repository"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	feetyperepo "github.com/smallbiznis/bursary/internal/feetype/repository"
	"github.com/smallbiznis/bursary/internal/migration"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	studentrepo "github.com/smallbiznis/bursary/internal/student/repository"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSession snowflake.ID = 10
	testFeeType snowflake.ID = 100
	testStudent snowflake.ID = 300
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&sessiondomain.AcademicSession{
		ID: testSession, TenantID: 1, Name: "2025-26",
		StartDate: now, EndDate: now.AddDate(1, 0, -1),
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&feetypedomain.FeeType{
		ID: testFeeType, TenantID: 1, Name: "Tuition Fee", Code: "tuition-fee", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&studentdomain.StudentDetails{
		ID: testStudent, TenantID: 1, AdmissionNo: "ADM-1", Name: "Kiran",
		SessionID: testSession, ClassName: "Class 1", Status: studentdomain.StatusActive,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	return New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(now),
		Repo:        repository.Provide(),
		SessionRepo: sessionrepo.Provide(),
		FeeTypeRepo: feetyperepo.Provide(),
		StudentRepo: studentrepo.Provide(),
	})
}

func tenantCtx() context.Context {
	return tenantcontext.WithActor(tenantcontext.WithTenantID(context.Background(), 1), "principal")
}

func baseRequest() domain.CreateDiscountRequest {
	return domain.CreateDiscountRequest{
		StudentID:    testStudent,
		FeeTypeID:    testFeeType,
		SessionID:    testSession,
		DiscountType: "fixed",
		Value:        decimal.NewFromInt(500),
		Reason:       "sibling",
	}
}

func TestCreateDiscount(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantCtx()

	discount, err := svc.Create(ctx, baseRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountTypeFixed, discount.DiscountType)
	assert.Equal(t, "principal", discount.ApprovedBy)

	_, err = svc.Create(ctx, baseRequest())
	assert.ErrorIs(t, err, domain.ErrDiscountExists)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	views, err := svc.FindByStudent(ctx, testStudent, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Tuition Fee", views[0].FeeTypeName)
	assert.Equal(t, "2025-26", views[0].SessionName)
	assert.Equal(t, "500.00", views[0].DiscountValue.StringFixed(2))
}

func TestCreateDiscountValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantCtx()

	req := baseRequest()
	req.DiscountType = "percentage"
	req.Value = decimal.NewFromInt(101)
	_, err := svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrPercentageTooHigh)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	req = baseRequest()
	req.Value = decimal.Zero
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscountValue)

	req = baseRequest()
	req.Value = decimal.RequireFromString("0.004")
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscountValue)
	views, err := svc.FindByStudent(ctx, testStudent, nil)
	require.NoError(t, err)
	assert.Empty(t, views)

	req = baseRequest()
	req.DiscountType = "voucher"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscountType)

	req = baseRequest()
	req.StudentID = 999
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, studentdomain.ErrNotFound)

	req = baseRequest()
	req.FeeTypeID = 0
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestUpdateAndDeleteDiscount(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantCtx()

	discount, err := svc.Create(ctx, baseRequest())
	require.NoError(t, err)

	percentage := "PERCENTAGE"
	tooHigh := decimal.NewFromInt(150)
	_, err = svc.Update(ctx, discount.ID, domain.UpdateDiscountRequest{DiscountType: &percentage, Value: &tooHigh})
	assert.ErrorIs(t, err, domain.ErrPercentageTooHigh)

	half := decimal.NewFromInt(50)
	updated, err := svc.Update(ctx, discount.ID, domain.UpdateDiscountRequest{DiscountType: &percentage, Value: &half})
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountTypePercentage, updated.DiscountType)
	assert.Equal(t, "50.00", updated.DiscountValue.StringFixed(2))

	require.NoError(t, svc.Delete(ctx, discount.ID))
	assert.ErrorIs(t, svc.Delete(ctx, discount.ID), domain.ErrNotFound)

	views, err := svc.FindByStudent(ctx, testStudent, nil)
	require.NoError(t, err)
	assert.Empty(t, views)
}
