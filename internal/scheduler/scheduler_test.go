package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBills struct {
	billdomain.Service

	mu      sync.Mutex
	tenants []snowflake.ID
	actors  []string
	asOf    []time.Time
	failFor snowflake.ID
}

func (f *fakeBills) MarkOverdue(ctx context.Context, asOf time.Time) (billdomain.OverdueSweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenantID, _ := tenantcontext.TenantIDFromContext(ctx)
	f.tenants = append(f.tenants, tenantID)
	f.actors = append(f.actors, tenantcontext.ActorFromContext(ctx))
	f.asOf = append(f.asOf, asOf)
	if tenantID == f.failFor {
		return billdomain.OverdueSweepResult{}, billdomain.ErrVersionConflict
	}
	return billdomain.OverdueSweepResult{Updated: 1, BillNos: []string{"BILL-1"}}, nil
}

func newTestScheduler(t *testing.T, bills *fakeBills, now time.Time) *Scheduler {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&sessiondomain.ActiveSessionPointer{}))

	for _, tenantID := range []snowflake.ID{11, 7} {
		require.NoError(t, conn.Create(&sessiondomain.ActiveSessionPointer{
			TenantID:    tenantID,
			SessionID:   tenantID * 100,
			ActivatedBy: "admin",
			ActivatedAt: now,
		}).Error)
	}

	sched, err := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
		Bills: bills,
	})
	require.NoError(t, err)
	return sched
}

func TestOverdueSweepRunsPerTenant(t *testing.T) {
	now := time.Date(2024, 5, 20, 1, 0, 0, 0, time.UTC)
	bills := &fakeBills{}
	sched := newTestScheduler(t, bills, now)

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.Equal(t, []snowflake.ID{7, 11}, bills.tenants)
	assert.Equal(t, []string{systemActor, systemActor}, bills.actors)
	for _, asOf := range bills.asOf {
		assert.True(t, asOf.Equal(now))
	}
}

func TestOverdueSweepContinuesAfterTenantFailure(t *testing.T) {
	now := time.Date(2024, 5, 20, 1, 0, 0, 0, time.UTC)
	bills := &fakeBills{failFor: 7}
	sched := newTestScheduler(t, bills, now)

	err := sched.RunOnce(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, billdomain.ErrVersionConflict)
	assert.Equal(t, []snowflake.ID{7, 11}, bills.tenants)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	sched := &Scheduler{
		log:   zap.NewNop(),
		cfg:   Config{JobTimeout: 5 * time.Millisecond},
		clock: clock.NewFakeClock(time.Time{}),
	}

	err := sched.runJob(context.Background(), "timeout_job", func(ctx context.Context) error {
		<-ctx.Done()
		return apperr.ErrCancelled
	})

	assert.NoError(t, err)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
}
