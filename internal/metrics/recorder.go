// Package metrics records stage-level execution metrics.
// Pipeline stages are short-lived batch processes with no scrape surface,
// so the Prometheus recorder optionally pushes its registry to a
// Pushgateway when the stage ends.
package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
)

// Recorder is an abstract interface for recording stage execution metrics.
// It decouples the stage runner from the metrics backend.
type Recorder interface {
	// RecordStageStart records the start of a stage execution.
	RecordStageStart(ctx context.Context, exec *model.StageExecution)
	// RecordStageEnd records the end of a stage execution, including its
	// final status and duration.
	RecordStageEnd(ctx context.Context, exec *model.StageExecution)
	// RecordRowsRead records input rows consumed by a stage.
	RecordRowsRead(ctx context.Context, stage string, n int)
	// RecordRowsWritten records output rows produced by a stage.
	RecordRowsWritten(ctx context.Context, stage string, n int)
}

// NewRecorder selects the recorder implementation from configuration:
// Prometheus with an optional Pushgateway sink when configured, otherwise a
// no-op recorder.
func NewRecorder(cfg *config.Config) Recorder {
	if cfg.Ridelake.Telemetry.PushgatewayURL == "" {
		return NewNoopRecorder()
	}
	return NewPrometheusRecorder(cfg.Ridelake.Telemetry.PushgatewayURL)
}

// Module provides the metrics recorder to an fx application.
var Module = fx.Options(
	fx.Provide(NewRecorder),
)
