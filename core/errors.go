package core

import "github.com/pkg/errors"

// FieldError ties a problem to the field that caused it, whether that is
// a struct field failing validation or a column in an imported roster or
// goal file.
type FieldError struct {
	Field string
	Error string
}

// ValidationError wraps a request error with the per-field problems
// behind it. The API layer renders the fields back to the caller.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks a fault the server cannot safely keep running through,
// such as a lost database connection.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, at its cause, asks for a server
// shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
