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

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesIssued  metric.Int64Counter
	creditNotes     metric.Int64Counter
	taxRuleInserts  metric.Int64Counter
	taxRuleRejects  metric.Int64Counter
	consentEvents   metric.Int64Counter
	purgeCandidates metric.Int64Gauge
	dsarRequests    metric.Int64Counter
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
		name = "nexuscore"
	}
	meter := provider.Meter(name)

	invoicesIssued, err := meter.Int64Counter("nexuscore_invoices_issued_total")
	if err != nil {
		return nil, err
	}
	creditNotes, err := meter.Int64Counter("nexuscore_credit_notes_total")
	if err != nil {
		return nil, err
	}
	taxRuleInserts, err := meter.Int64Counter("nexuscore_tax_rule_inserts_total")
	if err != nil {
		return nil, err
	}
	taxRuleRejects, err := meter.Int64Counter("nexuscore_tax_rule_rejects_total")
	if err != nil {
		return nil, err
	}
	consentEvents, err := meter.Int64Counter("nexuscore_consent_events_total")
	if err != nil {
		return nil, err
	}
	purgeCandidates, err := meter.Int64Gauge("nexuscore_purge_candidates")
	if err != nil {
		return nil, err
	}
	dsarRequests, err := meter.Int64Counter("nexuscore_dsar_requests_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicesIssued:  invoicesIssued,
		creditNotes:     creditNotes,
		taxRuleInserts:  taxRuleInserts,
		taxRuleRejects:  taxRuleRejects,
		consentEvents:   consentEvents,
		purgeCandidates: purgeCandidates,
		dsarRequests:    dsarRequests,
	}, nil
}

// RecordInvoiceIssued increments issued invoice counts.
func (m *Metrics) RecordInvoiceIssued(ctx context.Context, currency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("currency", strings.TrimSpace(currency)))
	m.invoicesIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCreditNote increments credit note counts.
func (m *Metrics) RecordCreditNote(ctx context.Context, currency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("currency", strings.TrimSpace(currency)))
	m.creditNotes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTaxRuleInsert increments accepted tax rule counts.
func (m *Metrics) RecordTaxRuleInsert(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.taxRuleInserts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTaxRuleReject increments rejected (conflicting) tax rule counts.
func (m *Metrics) RecordTaxRuleReject(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.taxRuleRejects.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConsentEvent increments consent event counts.
func (m *Metrics) RecordConsentEvent(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.consentEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPurgeCandidates records the current purge queue depth.
func (m *Metrics) RecordPurgeCandidates(ctx context.Context, count int64) {
	if m == nil {
		return
	}
	m.purgeCandidates.Record(ctx, count)
}

// RecordDSARRequest increments DSAR request counts.
func (m *Metrics) RecordDSARRequest(ctx context.Context, requestType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("request_type", strings.TrimSpace(requestType)))
	m.dsarRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
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

// Subject identifiers never appear as metric labels; categories and
// actions are the only allowed dimensions.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"currency":     {},
	"category":     {},
	"action":       {},
	"request_type": {},
	"status_code":  {},
	"endpoint":     {},
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
