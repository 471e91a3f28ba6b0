package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/migration"
	"github.com/smallbiznis/bursary/internal/reference"
	"github.com/smallbiznis/bursary/internal/schoolclass/domain"
	"github.com/smallbiznis/bursary/internal/schoolclass/repository"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		Repo:      repository.Provide(conn),
		Reference: reference.NewRepository(),
	}), conn
}

func TestCreateAndOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), 1)

	for _, req := range []domain.CreateClassRequest{
		{Name: "Class 3", Order: 3, Capacity: 40},
		{Name: "Class 1", Order: 1},
		{Name: "Class 2", DisplayName: "Second Standard", Order: 2},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	classes, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, "Class 1", classes[0].Name)
	assert.Equal(t, "Class 1", classes[0].DisplayName)
	assert.Equal(t, "Second Standard", classes[1].DisplayName)
	assert.Equal(t, "Class 3", classes[2].Name)

	_, err = svc.Create(ctx, domain.CreateClassRequest{Name: "Class 1", Order: 9})
	assert.ErrorIs(t, err, domain.ErrClassExists)
	_, err = svc.Create(ctx, domain.CreateClassRequest{Name: "Class 9", Order: 2})
	assert.ErrorIs(t, err, domain.ErrOrderTaken)
	_, err = svc.Create(ctx, domain.CreateClassRequest{Name: "Class 0", Order: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	_, err = svc.Create(ctx, domain.CreateClassRequest{Name: "Class 4", Order: 4, Capacity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

	other := tenantcontext.WithTenantID(context.Background(), 2)
	_, err = svc.Create(other, domain.CreateClassRequest{Name: "Class 1", Order: 1})
	assert.NoError(t, err)
}

func TestNextFollowsOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), 1)

	for _, req := range []domain.CreateClassRequest{
		{Name: "Nursery", Order: 1},
		{Name: "Class 1", Order: 5},
		{Name: "Class 2", Order: 10},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	next, err := svc.Next(ctx, "Nursery")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "Class 1", next.Name)

	next, err = svc.Next(ctx, "Class 2")
	require.NoError(t, err)
	assert.Nil(t, next)

	_, err = svc.Next(ctx, "Class 12")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBlockedByStudents(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), 1)

	_, err := svc.Create(ctx, domain.CreateClassRequest{Name: "Class 1", Order: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateClassRequest{Name: "Class 2", Order: 2})
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&studentdomain.StudentDetails{
		ID:          snowflake.ID(700),
		TenantID:    1,
		SessionID:   snowflake.ID(10),
		AdmissionNo: "ADM-1",
		Name:        "Asha",
		ClassName:   "Class 1",
		Status:      studentdomain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	assert.ErrorIs(t, svc.Delete(ctx, "Class 1"), domain.ErrClassInUse)
	require.NoError(t, svc.Delete(ctx, "Class 2"))

	_, err = svc.GetByName(ctx, "Class 2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
