package resource

import (
	"errors"
	"fmt"
)

// The error taxonomy surfaced by import/export and by failed load tasks.
// Callers classify with errors.Is.
var (
	// ErrInvalidArgument marks a caller bug: bad path, wrong result
	// type, malformed arguments.
	ErrInvalidArgument = errors.New("resource: invalid argument")
	// ErrNotSupported means no registered handler covers the extension
	// or operation.
	ErrNotSupported = errors.New("resource: not supported")
	// ErrNotFound means the addressed resource does not exist.
	ErrNotFound = errors.New("resource: not found")
	// ErrInvalidFormat means the resource content is malformed.
	ErrInvalidFormat = errors.New("resource: invalid format")
	// ErrIO marks a file-system failure.
	ErrIO = errors.New("resource: i/o failure")
	// ErrHandlerFault wraps an unexpected failure inside a format
	// handler.
	ErrHandlerFault = errors.New("resource: handler fault")
	// ErrDisposed means the manager or its filesystem was torn down.
	ErrDisposed = errors.New("resource: disposed")
)

// HandlerError carries the handler and path context of a wrapped handler
// fault.
type HandlerError struct {
	Path Path
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("resource: handler fault for %q: %v", e.Path, e.Err)
}

// Unwrap exposes both the fault sentinel and the underlying cause, so
// errors.Is matches either.
func (e *HandlerError) Unwrap() []error { return []error{ErrHandlerFault, e.Err} }

// classified reports whether err already belongs to the taxonomy.
func classified(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidArgument, ErrNotSupported, ErrNotFound,
		ErrInvalidFormat, ErrIO, ErrHandlerFault, ErrDisposed,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
