package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

// PrometheusRecorder collects stage metrics into a private registry and
// pushes it to a Pushgateway when the stage ends.
type PrometheusRecorder struct {
	gatewayURL string
	registry   *prometheus.Registry

	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	rowsRead      *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a recorder pushing to the given Pushgateway.
func NewPrometheusRecorder(gatewayURL string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		gatewayURL: gatewayURL,
		registry:   registry,
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridelake_stage_runs_total",
			Help: "Total stage runs by stage and final status.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ridelake_stage_duration_seconds",
			Help:    "Stage run duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		rowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridelake_rows_read_total",
			Help: "Input rows consumed by stage.",
		}, []string{"stage"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridelake_rows_written_total",
			Help: "Output rows produced by stage.",
		}, []string{"stage"}),
	}

	registry.MustRegister(r.stageRuns, r.stageDuration, r.rowsRead, r.rowsWritten)
	return r
}

// RecordStageStart is a no-op for the Prometheus backend; counters are
// finalized at stage end.
func (r *PrometheusRecorder) RecordStageStart(ctx context.Context, exec *model.StageExecution) {}

// RecordStageEnd finalizes the run metrics and pushes the registry.
// Push failures are logged, never propagated: metrics must not fail a stage.
func (r *PrometheusRecorder) RecordStageEnd(ctx context.Context, exec *model.StageExecution) {
	r.stageRuns.WithLabelValues(exec.Stage, string(exec.Status)).Inc()
	r.stageDuration.WithLabelValues(exec.Stage).Observe(exec.Duration().Seconds())

	if err := push.New(r.gatewayURL, "ridelake").
		Gatherer(r.registry).
		Grouping("stage", exec.Stage).
		Push(); err != nil {
		logger.Warnf("Failed to push stage metrics for '%s' to %s: %v", exec.Stage, r.gatewayURL, err)
	}
}

// RecordRowsRead counts input rows for the stage.
func (r *PrometheusRecorder) RecordRowsRead(ctx context.Context, stage string, n int) {
	r.rowsRead.WithLabelValues(stage).Add(float64(n))
}

// RecordRowsWritten counts output rows for the stage.
func (r *PrometheusRecorder) RecordRowsWritten(ctx context.Context, stage string, n int) {
	r.rowsWritten.WithLabelValues(stage).Add(float64(n))
}
