package pipeline

import (
	"errors"
	"fmt"

	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// ErrNotReady is returned by the reader when a job exists but has not
// completed yet.
var ErrNotReady = errors.New("result not ready")

// StageError is how executors classify their own failures. The coordinator
// never inspects executor internals; it reads the kind off this type and
// applies the retry policy uniformly.
type StageError struct {
	Kind models.ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Errf builds a classified stage error.
func Errf(kind models.ErrorKind, format string, args ...any) *StageError {
	return &StageError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapErr classifies an existing error.
func WrapErr(kind models.ErrorKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

// Classify extracts the error kind from an executor failure. Unclassified
// errors are treated as transient so a flaky collaborator gets its retries.
func Classify(err error) models.ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return models.ErrKindTransientIO
}

// JobFailedError is returned by the reader's Result for a failed job,
// carrying the recorded failure.
type JobFailedError struct {
	JobError models.JobError
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job failed at %s (%s): %s", e.JobError.Stage, e.JobError.Kind, e.JobError.Message)
}
