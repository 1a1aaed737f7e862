package dispatch

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidInput     Code = "invalid_input"
	CodeUnknownOperation Code = "unknown_operation"
	CodeAnalyzerFailure  Code = "analyzer_failure"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrAnalyzerFailure  = errors.New("analyzer failure")
)

// Error is the typed failure of a single request.
type Error struct {
	Code Code
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e's code.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeInvalidInput:
		return target == ErrInvalidInput
	case CodeUnknownOperation:
		return target == ErrUnknownOperation
	case CodeAnalyzerFailure:
		return target == ErrAnalyzerFailure
	}
	return false
}

func invalidInput(kind Kind, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Kind: kind, Err: fmt.Errorf(format, args...)}
}
