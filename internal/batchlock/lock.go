package batchlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const keyPrefix = "bursary:batch"

var ErrBatchInProgress = apperr.Conflict("batch_in_progress")

// Locker guards batch operations across replicas with a Redis SETNX lock.
// A nil Locker grants every lock, which is the single-instance setup.
type Locker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	log    *zap.Logger
}

func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Locker, error) {
	if !cfg.Redis.Enabled() {
		return nil, nil
	}
	ttl := time.Duration(cfg.Redis.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		return nil, errors.New("batch lock ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.Redis.Addr),
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	locker := NewLocker(client, ttl, log)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}
	return locker, nil
}

func NewLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *Locker {
	if client == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
		log:    log.Named("batchlock"),
	}
}

// Key builds a lock key scoped to a tenant.
func Key(tenantID snowflake.ID, parts ...string) string {
	cleaned := make([]string, 0, len(parts)+2)
	cleaned = append(cleaned, keyPrefix, tenantID.String())
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			part = "-"
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, ":")
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// Acquire takes the lock for key or fails with ErrBatchInProgress. The
// returned release func is always safe to call.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token, ok, err := l.TryLock(ctx, key, l.ttl)
	if err != nil {
		return func() {}, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return func() {}, ErrBatchInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.Release(releaseCtx, key, token); err != nil {
			l.log.Warn("failed to release batch lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
