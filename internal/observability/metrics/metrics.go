package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes fee domain instruments.
type Metrics struct {
	billsGenerated    metric.Int64Counter
	billFailures      metric.Int64Counter
	paymentsCollected metric.Int64Counter
	paymentAmount     metric.Float64Counter
	ledgerEntries     metric.Int64Counter
	promotions        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "bursary"
	}
	meter := provider.Meter(name)

	billsGenerated, err := meter.Int64Counter("bursary_bills_generated_total")
	if err != nil {
		return nil, err
	}
	billFailures, err := meter.Int64Counter("bursary_bill_generation_failures_total")
	if err != nil {
		return nil, err
	}
	paymentsCollected, err := meter.Int64Counter("bursary_payments_collected_total")
	if err != nil {
		return nil, err
	}
	paymentAmount, err := meter.Float64Counter("bursary_payment_amount_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("bursary_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	promotions, err := meter.Int64Counter("bursary_promotions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billsGenerated:    billsGenerated,
		billFailures:      billFailures,
		paymentsCollected: paymentsCollected,
		paymentAmount:     paymentAmount,
		ledgerEntries:     ledgerEntries,
		promotions:        promotions,
	}, nil
}

// RecordBillsGenerated adds committed and failed bill counts for one batch.
func (m *Metrics) RecordBillsGenerated(ctx context.Context, generated, failed int) {
	if m == nil {
		return
	}
	if generated > 0 {
		m.billsGenerated.Add(ctx, int64(generated))
	}
	if failed > 0 {
		m.billFailures.Add(ctx, int64(failed))
	}
}

// RecordPayment increments payment counts by mode and kind.
func (m *Metrics) RecordPayment(ctx context.Context, paymentMode, kind string, amount float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("payment_mode", strings.TrimSpace(paymentMode)),
		attribute.String("kind", strings.TrimSpace(kind)),
	)
	m.paymentsCollected.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.paymentAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, sourceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPromotion increments promotion counts by outcome.
func (m *Metrics) RecordPromotion(ctx context.Context, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.promotions.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"tenant_id":    {},
	"payment_mode": {},
	"kind":         {},
	"source_type":  {},
	"outcome":      {},
	"status_code":  {},
	"route":        {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
