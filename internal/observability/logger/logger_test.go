package logger

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/smallbiznis/bursary/internal/observability/context"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsTenantAndRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := tenantcontext.WithTenantID(context.Background(), snowflake.ID(9))
	ctx = tenantcontext.WithActor(ctx, "bursar")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	WithContext(ctx, base).Info("collected")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "9", fields["tenant_id"])
		assert.Equal(t, "bursar", fields["actor"])
		assert.Equal(t, "req-1", fields["request_id"])
	}
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from demand_bills"))
	assert.Equal(t, "UPDATE", operationFromSQL("WITH x AS (select 1) UPDATE demand_bills SET status = 'PAID'"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "demand_bills", tableFromSQL(`SELECT * FROM "demand_bills" WHERE tenant_id = $1`))
	assert.Equal(t, "fee_transactions", tableFromSQL("INSERT INTO `fee_transactions` (id) VALUES (?)"))
	assert.Equal(t, "ledger_entries", tableFromSQL("UPDATE ledger_entries SET x = 1"))
	assert.Equal(t, "unknown", tableFromSQL("BEGIN"))
}

func TestSlowQueryCarriesTenantAndTable(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	gormLog := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: 10 * time.Millisecond})
	ctx := tenantcontext.WithTenantID(context.Background(), snowflake.ID(9))

	gormLog.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return `SELECT * FROM "demand_bills" WHERE tenant_id = 9`, 3
	}, nil)
	gormLog.Trace(ctx, time.Now(), func() (string, int64) {
		return `SELECT * FROM "demand_bills"`, 1
	}, nil)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "gorm.slow_query", entries[0].Message)
		fields := entries[0].ContextMap()
		assert.Equal(t, "9", fields["tenant_id"])
		assert.Equal(t, "demand_bills", fields["table"])
		assert.Equal(t, int64(10), fields["slow_threshold_ms"])
	}
}
