package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/metrics"
	"github.com/tigerroll/ridelake/internal/pipeline"
	"github.com/tigerroll/ridelake/internal/telemetry"
)

// recordingStage captures the execution it was called with.
type recordingStage struct {
	name string
	err  error
	do   func(exec *model.StageExecution)

	called bool
	exec   *model.StageExecution
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Execute(ctx context.Context, exec *model.StageExecution) error {
	s.called = true
	s.exec = exec
	if s.do != nil {
		s.do(exec)
	}
	return s.err
}

func newTestRunner(t *testing.T) *pipeline.Runner {
	t.Helper()
	tracer, err := telemetry.NewTracer(context.Background(), config.NewConfig())
	require.NoError(t, err)
	return pipeline.NewRunner(nil, metrics.NewNoopRecorder(), tracer)
}

func TestRunnerCompletesSuccessfulStage(t *testing.T) {
	stage := &recordingStage{name: "etl", do: func(exec *model.StageExecution) {
		exec.RowsRead = 10
		exec.RowsWritten = 4
	}}

	err := newTestRunner(t).Run(context.Background(), stage)
	require.NoError(t, err)
	assert.True(t, stage.called)
	assert.Equal(t, model.StatusCompleted, stage.exec.Status)
	assert.NotNil(t, stage.exec.EndTime)
	assert.Empty(t, stage.exec.Failures)
}

func TestRunnerMarksFailedStage(t *testing.T) {
	boom := errors.New("bronze missing")
	stage := &recordingStage{name: "etl", err: boom}

	err := newTestRunner(t).Run(context.Background(), stage)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.StatusFailed, stage.exec.Status)
	require.Len(t, stage.exec.Failures, 1)
	assert.Contains(t, stage.exec.Failures[0], "bronze missing")
}

func TestRunnerRecoversPanic(t *testing.T) {
	stage := &recordingStage{name: "etl", do: func(*model.StageExecution) {
		panic("index out of range")
	}}

	err := newTestRunner(t).Run(context.Background(), stage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Contains(t, err.Error(), "index out of range")
	assert.Equal(t, model.StatusFailed, stage.exec.Status)
}
