package session

import (
	"errors"

	"cppolygon/internal/llmclient"
)

var (
	// ErrNoSpec is returned by GenerateTests and HuntBug before any spec
	// has been parsed. Busy flags are left untouched.
	ErrNoSpec = errors.New("no problem spec has been parsed")
	// ErrStaleSpec marks a result discarded because a newer spec was
	// parsed while the request was in flight.
	ErrStaleSpec = errors.New("problem spec changed while the request was in flight")
	// ErrInvalidArgument wraps rejected user input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// OperationError is the failure of one session operation. Notice is the
// localized message shown to the user; Err is the underlying cause.
type OperationError struct {
	Operation llmclient.Operation
	Notice    string
	Err       error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Notice
	}
	return e.Notice + " (" + e.Err.Error() + ")"
}

func (e *OperationError) Unwrap() error { return e.Err }
