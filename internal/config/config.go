package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName         string
	AppVersion      string
	Environment     string
	HTTPAddr        string
	DefaultTenantID int64
	SeedDefaults    bool

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMigrate         bool

	Redis     RedisConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

// RateLimitConfig bounds how often a tenant may start batch operations.
// Rate is tokens per second; zero disables limiting.
type RateLimitConfig struct {
	BatchRate  float64
	BatchBurst int
}

type SchedulerConfig struct {
	Enabled           bool
	IntervalSeconds   int
	JobTimeoutSeconds int
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	LockTTLSeconds int
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "bursary"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DefaultTenantID:   getenvInt64("DEFAULT_TENANT", 0),
		SeedDefaults:      getenvBool("SEED_DEFAULT_FEE_TYPES", true),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "bursary"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBMigrate:         getenvBool("DATABASE_MIGRATE", true),
		Redis: RedisConfig{
			Addr:           strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:       strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:             int(getenvInt64("REDIS_DB", 0)),
			LockTTLSeconds: int(getenvInt64("BATCH_LOCK_TTL_SECONDS", 120)),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getenvBool("SCHEDULER_ENABLED", true),
			IntervalSeconds:   int(getenvInt64("SCHEDULER_INTERVAL_SECONDS", 3600)),
			JobTimeoutSeconds: int(getenvInt64("SCHEDULER_JOB_TIMEOUT_SECONDS", 300)),
		},
		RateLimit: RateLimitConfig{
			BatchRate:  getenvFloat("BATCH_RATE_LIMIT_PER_SECOND", 0.1),
			BatchBurst: int(getenvInt64("BATCH_RATE_LIMIT_BURST", 5)),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
