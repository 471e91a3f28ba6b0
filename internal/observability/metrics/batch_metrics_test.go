package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyBatchReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "cancelled", err: context.Canceled, want: BatchReasonCancelled},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: BatchReasonDBLockTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: BatchReasonSerializationFailure},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: BatchReasonUniqueViolation},
		{name: "domain", err: apperr.Conflict("bill_exists"), want: "conflict"},
		{name: "unknown", err: errors.New("boom"), want: BatchReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyBatchReason(tc.err))
		})
	}
}

func TestBatchMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newBatchMetrics(registry, Config{ServiceName: "bursary", Environment: "test"})

	m.ObserveRun(BatchBillGeneration, 50*time.Millisecond)
	m.AddItems(BatchBillGeneration, "generated", 4)
	m.AddItems(BatchBillGeneration, "failed", 0)
	m.IncItemError(BatchBillGeneration, apperr.Conflict("bill_exists"))
	m.IncCancelled(BatchPromotion)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues(BatchBillGeneration)))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.items.WithLabelValues(BatchBillGeneration, "generated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.itemErrors.WithLabelValues(BatchBillGeneration, "conflict")))

	families, err := registry.Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		if family.GetName() != "bursary_batch_cancelled_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric, map[string]string{"batch": BatchPromotion, "env": "test"}) {
				found = true
				assert.Equal(t, float64(1), metric.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found)
}

func TestNilBatchMetricsIsNoop(t *testing.T) {
	var m *BatchMetrics
	m.ObserveRun(BatchPromotion, time.Second)
	m.AddItems(BatchPromotion, "promoted", 1)
	m.IncItemError(BatchPromotion, errors.New("boom"))
	m.ObserveLockWait("demand_bill", time.Millisecond)
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}
