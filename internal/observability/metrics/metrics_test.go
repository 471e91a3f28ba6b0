package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tenant_id", "123"),
		attribute.String("student_id", "456"),
		attribute.String("payment_mode", "CASH"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "tenant_id" && attrs[1].Key != "tenant_id" {
		t.Fatalf("expected tenant_id to be retained")
	}
	if attrs[0].Key != "payment_mode" && attrs[1].Key != "payment_mode" {
		t.Fatalf("expected payment_mode to be retained")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordBillsGenerated(ctx, 3, 1)
	m.RecordPayment(ctx, "CASH", "PAYMENT", 10)
	m.RecordLedgerEntry(ctx, "demand_bill")
	m.RecordPromotion(ctx, "promoted", 2)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotNil(t, m)
	m.RecordBillsGenerated(context.Background(), 1, 0)
}
