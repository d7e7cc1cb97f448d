package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/domain/model"
)

func TestNewStageExecution(t *testing.T) {
	exec := model.NewStageExecution("ingest")

	assert.NotEmpty(t, exec.ID)
	assert.Equal(t, "ingest", exec.Stage)
	assert.Equal(t, model.StatusStarting, exec.Status)
	assert.Nil(t, exec.EndTime)

	other := model.NewStageExecution("ingest")
	assert.NotEqual(t, exec.ID, other.ID)
}

func TestTransitionLifecycle(t *testing.T) {
	exec := model.NewStageExecution("etl")

	require.NoError(t, exec.TransitionTo(model.StatusStarted))
	require.NoError(t, exec.TransitionTo(model.StatusCompleted))

	// Completed is terminal.
	assert.Error(t, exec.TransitionTo(model.StatusStarted))
	assert.Error(t, exec.TransitionTo(model.StatusFailed))
}

func TestInvalidTransitions(t *testing.T) {
	exec := model.NewStageExecution("etl")

	// STARTING cannot jump straight to COMPLETED.
	assert.Error(t, exec.TransitionTo(model.StatusCompleted))
	assert.Equal(t, model.StatusStarting, exec.Status)
}

func TestMarkFailedRecordsError(t *testing.T) {
	exec := model.NewStageExecution("train")
	require.NoError(t, exec.TransitionTo(model.StatusStarted))

	exec.MarkFailed(errors.New("gold table is empty"))
	assert.Equal(t, model.StatusFailed, exec.Status)
	require.NotNil(t, exec.EndTime)
	require.Len(t, exec.Failures, 1)
	assert.Contains(t, exec.Failures[0], "gold table is empty")
}

func TestMarkCompletedSetsEndTime(t *testing.T) {
	exec := model.NewStageExecution("train")
	require.NoError(t, exec.TransitionTo(model.StatusStarted))

	exec.MarkCompleted()
	assert.Equal(t, model.StatusCompleted, exec.Status)
	require.NotNil(t, exec.EndTime)
	assert.GreaterOrEqual(t, exec.Duration(), time.Duration(0))
}
