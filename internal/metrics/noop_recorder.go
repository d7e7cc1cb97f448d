package metrics

import (
	"context"

	"github.com/tigerroll/ridelake/internal/domain/model"
)

// NoopRecorder discards all metrics. Used when no metrics sink is configured.
type NoopRecorder struct{}

var _ Recorder = (*NoopRecorder)(nil)

// NewNoopRecorder creates a recorder that does nothing.
func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (r *NoopRecorder) RecordStageStart(ctx context.Context, exec *model.StageExecution) {}
func (r *NoopRecorder) RecordStageEnd(ctx context.Context, exec *model.StageExecution)   {}
func (r *NoopRecorder) RecordRowsRead(ctx context.Context, stage string, n int)          {}
func (r *NoopRecorder) RecordRowsWritten(ctx context.Context, stage string, n int)       {}
