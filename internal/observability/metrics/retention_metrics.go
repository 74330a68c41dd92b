package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RetentionMetrics captures retention enforcement job health signals.
type RetentionMetrics struct {
	jobRuns           *prometheus.CounterVec
	jobDuration       prometheus.Observer
	jobErrors         *prometheus.CounterVec
	recordsPurged     prometheus.Counter
	recordsAnonymized prometheus.Counter
	exportsExpired    prometheus.Counter
	purgeQueueDepth   prometheus.Gauge
}

var (
	retentionMetricsOnce sync.Once
	retentionMetrics     *RetentionMetrics
)

// Retention returns the singleton retention job metrics registry.
func Retention() *RetentionMetrics {
	return RetentionWithConfig(Config{})
}

// RetentionWithConfig returns the singleton retention job metrics registry using config labels.
func RetentionWithConfig(cfg Config) *RetentionMetrics {
	retentionMetricsOnce.Do(func() {
		retentionMetrics = newRetentionMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return retentionMetrics
}

// ResetRetentionMetricsForTest resets the retention metrics singleton for tests.
func ResetRetentionMetricsForTest() {
	retentionMetricsOnce = sync.Once{}
	retentionMetrics = nil
}

func newRetentionMetrics(registerer prometheus.Registerer, cfg Config) *RetentionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "nexuscore"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nexuscore_retention_job_runs_total",
		Help:        "Retention enforcement job runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	jobDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "nexuscore_retention_job_duration_seconds",
		Help:        "Retention enforcement job duration.",
		Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12),
		ConstLabels: constLabels,
	})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "nexuscore_retention_job_errors_total",
		Help:        "Retention enforcement job errors by type.",
		ConstLabels: constLabels,
	}, []string{"error_type"})
	recordsPurged := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "nexuscore_retention_records_purged_total",
		Help:        "Personal data records purged by the retention job.",
		ConstLabels: constLabels,
	})
	recordsAnonymized := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "nexuscore_retention_records_anonymized_total",
		Help:        "Personal data records anonymized by the retention job.",
		ConstLabels: constLabels,
	})
	exportsExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "nexuscore_retention_dsar_exports_expired_total",
		Help:        "Expired DSAR exports cleared by the retention job.",
		ConstLabels: constLabels,
	})
	purgeQueueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "nexuscore_retention_purge_queue_depth",
		Help:        "Subjects due for purge at the last job run.",
		ConstLabels: constLabels,
	})

	for _, collector := range []prometheus.Collector{
		jobRuns, jobDuration, jobErrors, recordsPurged, recordsAnonymized, exportsExpired, purgeQueueDepth,
	} {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	return &RetentionMetrics{
		jobRuns:           jobRuns,
		jobDuration:       jobDuration,
		jobErrors:         jobErrors,
		recordsPurged:     recordsPurged,
		recordsAnonymized: recordsAnonymized,
		exportsExpired:    exportsExpired,
		purgeQueueDepth:   purgeQueueDepth,
	}
}

// ObserveRun records one job run.
func (m *RetentionMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(outcome).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

// ObserveError records a job error by type.
func (m *RetentionMetrics) ObserveError(errorType string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(errorType).Inc()
}

// AddPurged records purged record counts.
func (m *RetentionMetrics) AddPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsPurged.Add(float64(n))
}

// AddAnonymized records anonymized record counts.
func (m *RetentionMetrics) AddAnonymized(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsAnonymized.Add(float64(n))
}

// AddExportsExpired records cleared DSAR exports.
func (m *RetentionMetrics) AddExportsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.exportsExpired.Add(float64(n))
}

// SetPurgeQueueDepth records the purge queue depth.
func (m *RetentionMetrics) SetPurgeQueueDepth(n int) {
	if m == nil {
		return
	}
	m.purgeQueueDepth.Set(float64(n))
}
