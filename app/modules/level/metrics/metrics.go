// Package levelmetrics instruments the level module. Services depend on the
// interface; production wiring installs the Prometheus implementation and
// tests install NoOpMetrics.
package levelmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

type LevelMetrics interface {
	RecordCalculationAttempt(ctx context.Context, group sharedtypes.GroupName)
	RecordCalculationSuccess(ctx context.Context, group sharedtypes.GroupName)
	RecordCalculationFailure(ctx context.Context, group sharedtypes.GroupName)
	RecordCalculationCoalesced(ctx context.Context, group sharedtypes.GroupName)
	RecordCalculationDuration(ctx context.Context, group sharedtypes.GroupName, d time.Duration)
	RecordScannedMaterials(ctx context.Context, group sharedtypes.GroupName, materials int)

	RecordHandlerAttempt(handlerName string)
	RecordHandlerSuccess(handlerName string)
	RecordHandlerFailure(handlerName string)
	RecordHandlerDuration(handlerName string, d time.Duration)
}

// PrometheusMetrics registers counters and histograms on the given registry.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	coalesced *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	materials *prometheus.HistogramVec

	handlerAttempts  *prometheus.CounterVec
	handlerSuccesses *prometheus.CounterVec
	handlerFailures  *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
}

var _ LevelMetrics = (*PrometheusMetrics)(nil)

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_calculation_attempts_total",
			Help: "Number of level calculations started.",
		}, []string{"group"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_calculation_successes_total",
			Help: "Number of level calculations that completed.",
		}, []string{"group"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_calculation_failures_total",
			Help: "Number of level calculations that failed.",
		}, []string{"group"}),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_calculation_coalesced_total",
			Help: "Number of requests attached to an already-pending calculation.",
		}, []string{"group"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "level_calculation_duration_seconds",
			Help:    "Wall time of a level calculation, scan included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"group"}),
		materials: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "level_scan_material_types",
			Help:    "Distinct material types returned by an island scan.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"group"}),
		handlerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_handler_attempts_total",
			Help: "Number of event handler invocations.",
		}, []string{"handler"}),
		handlerSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_handler_successes_total",
			Help: "Number of event handler invocations that completed.",
		}, []string{"handler"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_handler_failures_total",
			Help: "Number of event handler invocations that errored.",
		}, []string{"handler"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "level_handler_duration_seconds",
			Help:    "Wall time of one event handler invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
	}
	reg.MustRegister(
		m.attempts, m.successes, m.failures, m.coalesced, m.duration, m.materials,
		m.handlerAttempts, m.handlerSuccesses, m.handlerFailures, m.handlerDuration,
	)
	return m
}

func (m *PrometheusMetrics) RecordCalculationAttempt(_ context.Context, group sharedtypes.GroupName) {
	m.attempts.WithLabelValues(string(group)).Inc()
}

func (m *PrometheusMetrics) RecordCalculationSuccess(_ context.Context, group sharedtypes.GroupName) {
	m.successes.WithLabelValues(string(group)).Inc()
}

func (m *PrometheusMetrics) RecordCalculationFailure(_ context.Context, group sharedtypes.GroupName) {
	m.failures.WithLabelValues(string(group)).Inc()
}

func (m *PrometheusMetrics) RecordCalculationCoalesced(_ context.Context, group sharedtypes.GroupName) {
	m.coalesced.WithLabelValues(string(group)).Inc()
}

func (m *PrometheusMetrics) RecordCalculationDuration(_ context.Context, group sharedtypes.GroupName, d time.Duration) {
	m.duration.WithLabelValues(string(group)).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordScannedMaterials(_ context.Context, group sharedtypes.GroupName, materials int) {
	m.materials.WithLabelValues(string(group)).Observe(float64(materials))
}

func (m *PrometheusMetrics) RecordHandlerAttempt(handlerName string) {
	m.handlerAttempts.WithLabelValues(handlerName).Inc()
}

func (m *PrometheusMetrics) RecordHandlerSuccess(handlerName string) {
	m.handlerSuccesses.WithLabelValues(handlerName).Inc()
}

func (m *PrometheusMetrics) RecordHandlerFailure(handlerName string) {
	m.handlerFailures.WithLabelValues(handlerName).Inc()
}

func (m *PrometheusMetrics) RecordHandlerDuration(handlerName string, d time.Duration) {
	m.handlerDuration.WithLabelValues(handlerName).Observe(d.Seconds())
}

// NoOpMetrics discards every observation.
type NoOpMetrics struct{}

var _ LevelMetrics = (*NoOpMetrics)(nil)

func (*NoOpMetrics) RecordCalculationAttempt(context.Context, sharedtypes.GroupName)                {}
func (*NoOpMetrics) RecordCalculationSuccess(context.Context, sharedtypes.GroupName)                {}
func (*NoOpMetrics) RecordCalculationFailure(context.Context, sharedtypes.GroupName)                {}
func (*NoOpMetrics) RecordCalculationCoalesced(context.Context, sharedtypes.GroupName)              {}
func (*NoOpMetrics) RecordCalculationDuration(context.Context, sharedtypes.GroupName, time.Duration) {}
func (*NoOpMetrics) RecordScannedMaterials(context.Context, sharedtypes.GroupName, int)             {}
func (*NoOpMetrics) RecordHandlerAttempt(string)                                                    {}
func (*NoOpMetrics) RecordHandlerSuccess(string)                                                    {}
func (*NoOpMetrics) RecordHandlerFailure(string)                                                    {}
func (*NoOpMetrics) RecordHandlerDuration(string, time.Duration)                                    {}
