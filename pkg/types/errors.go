package types

import (
	"errors"
	"fmt"
)

// Error kinds returned by the statistical packages. Match them with
// errors.Is.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDegenerateDistribution = errors.New("degenerate distribution")
)

// Error carries the failing operation and a human-readable message on top
// of one of the sentinel kinds.
type Error struct {
	Op      string
	Err     error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalidf returns an ErrInvalidInput error for op.
func Invalidf(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Degeneratef returns an ErrDegenerateDistribution error for op.
func Degeneratef(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: ErrDegenerateDistribution, Message: fmt.Sprintf(format, args...)}
}
