// Package exception provides the error types used across the pipeline stages.
// A StageError carries the module where the error occurred together with the
// wrapped cause; the Kind sentinels classify errors so that callers can react
// to the category (configuration, transport, schema, vocabulary, artifact)
// without inspecting message text.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a StageError into one of the pipeline's failure categories.
type Kind error

var (
	// ErrConfiguration marks errors caused by missing or invalid configuration.
	// Stages abort before any I/O when they hit one.
	ErrConfiguration Kind = errors.New("configuration error")
	// ErrTransport marks network fetch failures and non-success HTTP statuses.
	ErrTransport Kind = errors.New("transport error")
	// ErrSchema marks missing required columns and unparseable source values.
	ErrSchema Kind = errors.New("schema error")
	// ErrVocabulary marks lookups of stations unseen at training time.
	ErrVocabulary Kind = errors.New("out-of-vocabulary error")
	// ErrArtifactMissing marks absent model/encoder artifact files.
	// It signals "retrain required", not bad input.
	ErrArtifactMissing Kind = errors.New("artifact missing")
)

// StageError is the error type raised by pipeline components.
// It holds the module where the error occurred, a message, the wrapped
// original error and an optional Kind classification.
type StageError struct {
	// Module indicates the component where the error occurred (e.g. "ingest", "etl", "forecast").
	Module string
	// Message is a concise description of the error.
	Message string
	// Kind is the failure category, or nil when unclassified.
	Kind Kind
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is the stack trace captured at construction (for debugging).
	StackTrace string
}

// New creates a StageError without a category.
func New(module, message string, cause error) *StageError {
	return newStageError(module, message, nil, cause)
}

// Newf creates a StageError without a category using a format string.
func Newf(module string, format string, a ...interface{}) *StageError {
	return newStageError(module, fmt.Sprintf(format, a...), nil, nil)
}

// NewKind creates a StageError classified by the given Kind.
func NewKind(module string, kind Kind, message string, cause error) *StageError {
	return newStageError(module, message, kind, cause)
}

// NewKindf creates a classified StageError using a format string.
func NewKindf(module string, kind Kind, format string, a ...interface{}) *StageError {
	return newStageError(module, fmt.Sprintf(format, a...), kind, nil)
}

func newStageError(module, message string, kind Kind, cause error) *StageError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return &StageError{
		Module:      module,
		Message:     message,
		Kind:        kind,
		OriginalErr: cause,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap exposes the error chain for errors.Is / errors.As.
// The Kind sentinel participates in the chain so that
// errors.Is(err, exception.ErrSchema) works across wrapping.
func (e *StageError) Unwrap() []error {
	var chain []error
	if e.Kind != nil {
		chain = append(chain, e.Kind)
	}
	if e.OriginalErr != nil {
		chain = append(chain, e.OriginalErr)
	}
	return chain
}

// KindOf returns the Kind of the outermost StageError in err's chain,
// or nil when err carries no classification.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}

// UserMessage renders err as a single readable line for the serving boundary.
// It never exposes a stack trace; unclassified errors fall back to Error().
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return fmt.Sprintf("configuration problem: %v", err)
	case errors.Is(err, ErrTransport):
		return fmt.Sprintf("source fetch failed: %v", err)
	case errors.Is(err, ErrSchema):
		return fmt.Sprintf("data does not match the expected schema: %v", err)
	case errors.Is(err, ErrVocabulary):
		return fmt.Sprintf("unknown station: %v", err)
	case errors.Is(err, ErrArtifactMissing):
		return fmt.Sprintf("model artifacts not found, retrain required: %v", err)
	default:
		return err.Error()
	}
}
