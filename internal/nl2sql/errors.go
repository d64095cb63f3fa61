package nl2sql

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable reports that the completion service could not be
	// reached or answered with a transport-level failure.
	ErrServiceUnavailable = errors.New("completion service unavailable")
	// ErrEmptyCompletion reports a completion response with no usable choice.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrNoQueryGenerated reports that extraction found no SQL text.
	ErrNoQueryGenerated = errors.New("no SQL query generated")
	// ErrQueryExecutionFailed reports that the analytic store rejected or
	// failed the generated SQL.
	ErrQueryExecutionFailed = errors.New("query execution failed")
)

type Stage string

const (
	StageCompletion Stage = "completion"
	StageExtraction Stage = "extraction"
	StageExecution  Stage = "execution"
)

// Error is the failure returned by the pipeline. Kind is one of the
// sentinel errors above; Err carries the underlying diagnostic.
type Error struct {
	Kind  error
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns a stable label for err, suitable for metrics and API error
// codes. Unknown errors map to "internal".
func KindOf(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty_completion"
	case errors.Is(err, ErrNoQueryGenerated):
		return "no_query_generated"
	case errors.Is(err, ErrQueryExecutionFailed):
		return "query_execution_failed"
	default:
		return "internal"
	}
}
