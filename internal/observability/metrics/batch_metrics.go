package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"gorm.io/gorm"
)

const (
	BatchBillGeneration = "bill_generation"
	BatchPromotion      = "promotion"
	BatchOverdueSweep   = "overdue_sweep"
)

const (
	BatchReasonCancelled            = "cancelled"
	BatchReasonDBLockTimeout        = "db_lock_timeout"
	BatchReasonSerializationFailure = "serialization_failure"
	BatchReasonUniqueViolation      = "unique_violation"
	BatchReasonUnknown              = "unknown"
)

// BatchMetrics captures health signals of per-student batch operations.
type BatchMetrics struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	items      *prometheus.CounterVec
	itemErrors *prometheus.CounterVec
	lockWait   *prometheus.HistogramVec
	cancelled  *prometheus.CounterVec
}

// NewBatchMetrics registers batch collectors with the default registerer.
func NewBatchMetrics(cfg Config) *BatchMetrics {
	return newBatchMetrics(prometheus.DefaultRegisterer, cfg)
}

func newBatchMetrics(registerer prometheus.Registerer, cfg Config) *BatchMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "bursary"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bursary_batch_runs_total",
		Help:        "Batch runs by name.",
		ConstLabels: constLabels,
	}, []string{"batch"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "bursary_batch_duration_seconds",
		Help:        "Batch latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"batch"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bursary_batch_items_total",
		Help:        "Batch items processed by outcome.",
		ConstLabels: constLabels,
	}, []string{"batch", "outcome"})
	itemErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bursary_batch_item_errors_total",
		Help:        "Batch item failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"batch", "reason"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "bursary_db_lock_wait_seconds",
		Help:        "Row lock wait time for SELECT FOR UPDATE.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"resource"})
	cancelled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bursary_batch_cancelled_total",
		Help:        "Batches interrupted before all items were processed.",
		ConstLabels: constLabels,
	}, []string{"batch"})

	registerer.MustRegister(runs, duration, items, itemErrors, lockWait, cancelled)

	return &BatchMetrics{
		runs:       runs,
		duration:   duration,
		items:      items,
		itemErrors: itemErrors,
		lockWait:   lockWait,
		cancelled:  cancelled,
	}
}

// ObserveRun records one batch run and its latency.
func (m *BatchMetrics) ObserveRun(batch string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(batch).Inc()
	m.duration.WithLabelValues(batch).Observe(elapsed.Seconds())
}

// AddItems records processed items for the batch by outcome.
func (m *BatchMetrics) AddItems(batch, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.items.WithLabelValues(batch, outcome).Add(float64(count))
}

// IncItemError classifies and counts a single item failure.
func (m *BatchMetrics) IncItemError(batch string, err error) {
	if m == nil || err == nil {
		return
	}
	m.itemErrors.WithLabelValues(batch, ClassifyBatchReason(err)).Inc()
}

func (m *BatchMetrics) IncCancelled(batch string) {
	if m == nil {
		return
	}
	m.cancelled.WithLabelValues(batch).Inc()
}

// ObserveLockWait records lock wait time for a locked resource.
func (m *BatchMetrics) ObserveLockWait(resource string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// ClassifyBatchReason maps item errors to low-cardinality reasons. Classified
// domain errors report their kind.
func ClassifyBatchReason(err error) string {
	if err == nil {
		return BatchReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return BatchReasonCancelled
	}
	if hasPGCode(err, "55P03") {
		return BatchReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return BatchReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return BatchReasonUniqueViolation
	}
	if kind := apperr.KindOf(err); kind != apperr.KindInternal {
		return string(kind)
	}
	return BatchReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
