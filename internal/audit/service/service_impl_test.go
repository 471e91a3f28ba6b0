package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/audit/repository"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestAuditLogRequiresTenant(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.AuditLog(context.Background(), auditdomain.ActionBillCancel, "demand_bill", nil, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAuditLogAndList(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), snowflake.ID(77))
	ctx = tenantcontext.WithActor(ctx, "bursar@school")

	for i := 0; i < 3; i++ {
		target := "BILL-202504-" + string(rune('a'+i))
		require.NoError(t, svc.AuditLog(ctx, auditdomain.ActionBillCancel, "demand_bill", &target, map[string]any{"reason": "duplicate"}))
		clk.Advance(time.Minute)
	}
	require.NoError(t, svc.AuditLog(ctx, auditdomain.ActionPaymentCollect, "fee_transaction", nil, nil))

	otherTenant := tenantcontext.WithTenantID(context.Background(), snowflake.ID(78))
	require.NoError(t, svc.AuditLog(otherTenant, auditdomain.ActionBillCancel, "demand_bill", nil, nil))

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		Action:     auditdomain.ActionBillCancel,
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "bursar@school", first.AuditLogs[0].Actor)
	assert.Equal(t, "BILL-202504-c", *first.AuditLogs[0].TargetID)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		Action:     auditdomain.ActionBillCancel,
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "BILL-202504-a", *second.AuditLogs[0].TargetID)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantcontext.WithTenantID(context.Background(), snowflake.ID(77))
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
