package pipeline

import (
	"context"
	"fmt"

	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/metrics"
	"github.com/tigerroll/ridelake/internal/runlog"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
	"github.com/tigerroll/ridelake/internal/telemetry"
)

// Runner executes a stage inside the uniform lifecycle: STARTING → STARTED →
// COMPLETED|FAILED, with run-log, metrics and tracing side channels.
type Runner struct {
	repo     runlog.Repository
	recorder metrics.Recorder
	tracer   telemetry.Tracer
}

// NewRunner creates a Runner. repo may be nil when run logging is disabled.
func NewRunner(repo runlog.Repository, recorder metrics.Recorder, tracer telemetry.Tracer) *Runner {
	return &Runner{repo: repo, recorder: recorder, tracer: tracer}
}

// Run executes the stage once and returns its terminal error, if any.
// A panic inside the stage is recovered and reported as a failure rather
// than crashing the process with a raw trace.
func (r *Runner) Run(ctx context.Context, stage Stage) (err error) {
	exec := model.NewStageExecution(stage.Name())
	logger.Infof("Stage '%s' starting (execution %s).", exec.Stage, exec.ID)

	r.saveRunLog(ctx, exec)
	r.recorder.RecordStageStart(ctx, exec)

	spanCtx, endSpan := r.tracer.StartStageSpan(ctx, exec)
	defer endSpan()

	if terr := exec.TransitionTo(model.StatusStarted); terr != nil {
		return terr
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage '%s' panicked: %v", exec.Stage, rec)
		}
		if err != nil {
			exec.MarkFailed(err)
			r.tracer.RecordError(spanCtx, err)
			logger.Errorf("Stage '%s' failed after %s: %s", exec.Stage, exec.Duration(), exception.UserMessage(err))
		} else {
			exec.MarkCompleted()
			logger.Infof("Stage '%s' completed in %s (rows read=%d, written=%d).",
				exec.Stage, exec.Duration(), exec.RowsRead, exec.RowsWritten)
		}
		r.recorder.RecordStageEnd(ctx, exec)
		r.saveRunLog(ctx, exec)
	}()

	err = stage.Execute(spanCtx, exec)
	if err == nil {
		r.recorder.RecordRowsRead(ctx, exec.Stage, int(exec.RowsRead))
		r.recorder.RecordRowsWritten(ctx, exec.Stage, int(exec.RowsWritten))
	}
	return err
}

// saveRunLog persists the execution, logging but never propagating failures.
func (r *Runner) saveRunLog(ctx context.Context, exec *model.StageExecution) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Save(ctx, exec); err != nil {
		logger.Warnf("Failed to persist run log for stage '%s' (execution %s): %v", exec.Stage, exec.ID, err)
	}
}
