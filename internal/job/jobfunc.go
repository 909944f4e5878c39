// Package job adapts plain closures to shardqueue.Job.
package job

import (
	"context"
	"errors"
	"fmt"
)

// ErrNilJobFunc is returned when a nil closure is run.
var ErrNilJobFunc = errors.New("nil JobFunc")

type jobFunc func(context.Context) error

func (f jobFunc) Run(ctx context.Context) error {
	if f == nil {
		return fmt.Errorf("jobfunc: %w", ErrNilJobFunc)
	}
	return f(ctx)
}

// Named wraps fn so that any error it returns is prefixed with op, which
// keeps error-handler logs readable when many pushes share a worker.
func Named(op, recordID string, fn func(context.Context) error) jobFunc {
	return jobFunc(func(ctx context.Context) error {
		if fn == nil {
			return fmt.Errorf("jobfunc: %w", ErrNilJobFunc)
		}
		if err := fn(ctx); err != nil {
			return &Error{Op: op, RecordID: recordID, Err: err}
		}
		return nil
	})
}

// Error annotates a failed background job with its operation and record.
type Error struct {
	Op       string
	RecordID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.RecordID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
