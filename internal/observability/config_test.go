package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/bursary/internal/config"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("DB_SLOW_QUERY_MS", "")
	t.Setenv("LOG_SQL", "")
	cfg := LoadConfig(config.Config{AppName: "", Environment: "production", AppVersion: "1.2.3"})

	assert.Equal(t, "bursary", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.False(t, cfg.LogSQL)
}

func TestGormLoggerConfigFollowsEnv(t *testing.T) {
	t.Setenv("DB_SLOW_QUERY_MS", "750")
	t.Setenv("LOG_SQL", "true")
	cfg := LoadConfig(config.Config{Environment: "production"})

	gormCfg := provideGormLoggerConfig(cfg)
	assert.Equal(t, 750*time.Millisecond, gormCfg.SlowThreshold)
	assert.Equal(t, gormlogger.Info, gormCfg.Level)

	t.Setenv("DB_SLOW_QUERY_MS", "-5")
	assert.Equal(t, 200*time.Millisecond, LoadConfig(config.Config{}).SlowQueryThreshold)
}

func TestDebugInDevelopment(t *testing.T) {
	cfg := Config{LogLevel: "info", Environment: "development"}
	assert.True(t, cfg.Debug())
	cfg = Config{LogLevel: "debug", Environment: "production"}
	assert.True(t, cfg.Debug())
}
