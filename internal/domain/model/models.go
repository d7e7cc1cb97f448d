// Package model holds the execution-lifecycle model shared by the stage
// runner, the run log and the metrics recorder.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StageStatus represents the lifecycle state of a stage execution.
type StageStatus string

const (
	StatusStarting  StageStatus = "STARTING"
	StatusStarted   StageStatus = "STARTED"
	StatusCompleted StageStatus = "COMPLETED"
	StatusFailed    StageStatus = "FAILED"
)

// validTransitions lists the allowed status transitions. Stages are
// single-shot batch jobs, so the graph is a straight line with a failure
// edge from every live state.
var validTransitions = map[StageStatus][]StageStatus{
	StatusStarting: {StatusStarted, StatusFailed},
	StatusStarted:  {StatusCompleted, StatusFailed},
}

// StageExecution records one run of one pipeline stage.
type StageExecution struct {
	// ID is the unique execution identifier.
	ID string
	// Stage is the stage name ("ingest", "etl", "train", "forecast").
	Stage string
	// Status is the current lifecycle state.
	Status StageStatus
	// StartTime is when the run began.
	StartTime time.Time
	// EndTime is when the run finished; nil while running.
	EndTime *time.Time
	// RowsRead counts input rows consumed by the stage.
	RowsRead int64
	// RowsWritten counts output rows produced by the stage.
	RowsWritten int64
	// Failures holds the error messages recorded on failure.
	Failures []string
}

// NewStageExecution creates a StageExecution in the STARTING state.
func NewStageExecution(stage string) *StageExecution {
	return &StageExecution{
		ID:        uuid.New().String(),
		Stage:     stage,
		Status:    StatusStarting,
		StartTime: time.Now(),
	}
}

// TransitionTo moves the execution to the next status, rejecting transitions
// the lifecycle does not allow.
func (e *StageExecution) TransitionTo(next StageStatus) error {
	for _, allowed := range validTransitions[e.Status] {
		if allowed == next {
			e.Status = next
			return nil
		}
	}
	return fmt.Errorf("invalid stage status transition from %s to %s", e.Status, next)
}

// MarkCompleted finalizes the execution as COMPLETED.
func (e *StageExecution) MarkCompleted() {
	now := time.Now()
	e.Status = StatusCompleted
	e.EndTime = &now
}

// MarkFailed finalizes the execution as FAILED and records the failure.
func (e *StageExecution) MarkFailed(err error) {
	now := time.Now()
	e.Status = StatusFailed
	e.EndTime = &now
	if err != nil {
		e.Failures = append(e.Failures, err.Error())
	}
}

// Duration returns the wall-clock duration of the run so far.
func (e *StageExecution) Duration() time.Duration {
	if e.EndTime != nil {
		return e.EndTime.Sub(e.StartTime)
	}
	return time.Since(e.StartTime)
}
