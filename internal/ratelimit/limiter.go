package ratelimit

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "bursary:ratelimit"

var ErrBatchRateLimited = apperr.RateLimited("batch_rate_limited")

// BatchLimiter throttles how often a tenant may start bill generation,
// promotion and overdue sweeps. A nil BatchLimiter allows everything.
type BatchLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*BatchLimiter, error) {
	if !cfg.Redis.Enabled() || cfg.RateLimit.BatchRate <= 0 {
		return nil, nil
	}
	if cfg.RateLimit.BatchBurst <= 0 {
		return nil, errors.New("batch rate limit burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.Redis.Addr),
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}
	return NewBatchLimiter(NewTokenBucket(client), cfg.RateLimit.BatchRate, cfg.RateLimit.BatchBurst, log), nil
}

func NewBatchLimiter(bucket *TokenBucket, rate float64, burst int, log *zap.Logger) *BatchLimiter {
	if bucket == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchLimiter{
		bucket: bucket,
		rate:   rate,
		burst:  burst,
		log:    log.Named("ratelimit"),
	}
}

func Key(tenantID snowflake.ID, operation string) string {
	operation = strings.ToLower(strings.TrimSpace(operation))
	if operation == "" {
		operation = "-"
	}
	return strings.Join([]string{keyPrefix, tenantID.String(), operation}, ":")
}

// Allow spends one token from the tenant's bucket for operation. Redis
// failures fail open so an outage never blocks fee operations.
func (l *BatchLimiter) Allow(ctx context.Context, tenantID snowflake.ID, operation string) (Result, error) {
	if l == nil {
		return Result{Allowed: true}, nil
	}

	res, err := l.bucket.Allow(ctx, Key(tenantID, operation), l.rate, l.burst)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		l.log.Warn("rate limiter unavailable, allowing request",
			zap.String("tenant_id", tenantID.String()),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return Result{Allowed: true, Limit: l.burst}, nil
	}
	if !res.Allowed {
		return res, ErrBatchRateLimited
	}
	return res, nil
}
