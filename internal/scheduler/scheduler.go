package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	obsmetrics "github.com/smallbiznis/bursary/internal/observability/metrics"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobOverdueSweep = "overdue_sweep"

	systemActor = "system:scheduler"
)

var ErrInvalidConfig = errors.New("invalid scheduler config")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Bills        billdomain.Service
	Config       Config                   `optional:"true"`
	BatchMetrics *obsmetrics.BatchMetrics `optional:"true"`
}

// Scheduler runs periodic fee maintenance jobs for every tenant with an
// active academic session.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	bills        billdomain.Service
	batchMetrics *obsmetrics.BatchMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Bills == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		bills:        p.Bills,
		batchMetrics: p.BatchMetrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = tenantcontext.WithActor(ctx, systemActor)
	log := s.log.With(zap.String("job", name))

	err := fn(ctx)
	log.Debug("job finished", zap.Duration("duration", s.clock.Now().Sub(start)), zap.Error(err))
	if err == nil {
		return nil
	}

	// deadline is a soft timeout, the next tick picks up the rest
	if apperr.Is(err, apperr.KindCancelled) {
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobOverdueSweep, s.OverdueSweepJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// OverdueSweepJob marks past-due unpaid bills OVERDUE tenant by tenant. A
// failing tenant does not stop the others.
func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	tenants, err := s.listTenants(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	var errs error
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := s.bills.MarkOverdue(tenantcontext.WithTenantID(ctx, tenantID), now)
		if err != nil {
			s.batchMetrics.IncItemError(obsmetrics.BatchOverdueSweep, err)
			s.log.Warn("overdue sweep failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			errs = errors.Join(errs, err)
			continue
		}
		if result.Updated > 0 {
			s.log.Info("overdue sweep",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("updated", result.Updated),
			)
		}
	}
	return errs
}

func (s *Scheduler) listTenants(ctx context.Context) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).
		Model(&sessiondomain.ActiveSessionPointer{}).
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	return ids, err
}
