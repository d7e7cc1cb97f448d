// Package pipeline defines the stage contract and the runner that gives
// every batch job the same outermost error scope: panics recovered, errors
// logged with timestamps, run log and metrics recorded, and a non-zero exit
// code reported to the caller on failure.
package pipeline

import (
	"context"

	"github.com/tigerroll/ridelake/internal/domain/model"
)

// Stage is a single run-to-completion batch job. Stages update the
// execution's row counters as they go; the runner owns the lifecycle.
type Stage interface {
	// Name returns the stage name used in logs, metrics and the run log.
	Name() string
	// Execute runs the stage to completion. Implementations must not write
	// partial output: every lake write is a whole-object replacement
	// performed only after the full in-memory result is ready.
	Execute(ctx context.Context, exec *model.StageExecution) error
}
