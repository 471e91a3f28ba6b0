package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/config"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	feetyperepo "github.com/smallbiznis/bursary/internal/feetype/repository"
	feetypeservice "github.com/smallbiznis/bursary/internal/feetype/service"
	"github.com/smallbiznis/bursary/internal/migration"
	"github.com/smallbiznis/bursary/internal/reference"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFeeTypes(t *testing.T) feetypedomain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return feetypeservice.New(feetypeservice.Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		Repo:      feetyperepo.Provide(),
		Reference: reference.NewRepository(),
	})
}

func TestEnsureDefaultFeeTypes(t *testing.T) {
	feeTypes := newFeeTypes(t)

	result, err := EnsureDefaultFeeTypes(context.Background(), feeTypes, 7)
	require.NoError(t, err)
	assert.Len(t, result.Created, len(feetypedomain.DefaultFeeTypes))

	result, err = EnsureDefaultFeeTypes(context.Background(), feeTypes, 7)
	require.NoError(t, err)
	assert.Empty(t, result.Created)

	listed, err := feeTypes.List(tenantcontext.WithTenantID(context.Background(), 7), false)
	require.NoError(t, err)
	assert.Len(t, listed, len(feetypedomain.DefaultFeeTypes))

	other, err := feeTypes.List(tenantcontext.WithTenantID(context.Background(), 8), false)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRunSeedsConfiguredTenant(t *testing.T) {
	feeTypes := newFeeTypes(t)

	require.NoError(t, run(Params{Config: config.Config{SeedDefaults: false, DefaultTenantID: 3}, Log: zap.NewNop(), FeeTypes: feeTypes}))
	none, err := feeTypes.List(tenantcontext.WithTenantID(context.Background(), 3), false)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, run(Params{Config: config.Config{SeedDefaults: true}, Log: zap.NewNop(), FeeTypes: feeTypes}))

	require.NoError(t, run(Params{Config: config.Config{SeedDefaults: true, DefaultTenantID: 3}, Log: zap.NewNop(), FeeTypes: feeTypes}))
	seeded, err := feeTypes.List(tenantcontext.WithTenantID(context.Background(), 3), false)
	require.NoError(t, err)
	assert.Len(t, seeded, len(feetypedomain.DefaultFeeTypes))
}
