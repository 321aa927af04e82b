package catalog

import "fmt"

// ErrorKind classifies why an operation failed.
type ErrorKind string

const (
	// KindValidation means the input was rejected before any network call.
	KindValidation ErrorKind = "validation_failure"
	// KindInvalidID means the identifier failed sanitization; no network call was made.
	KindInvalidID ErrorKind = "invalid_identifier"
	// KindNotFound means the product API answered 404.
	KindNotFound ErrorKind = "not_found"
	// KindUnsupported means the product API answered 405.
	KindUnsupported ErrorKind = "unsupported"
	// KindBackend means the product API answered with another non-2xx status
	// or an unreadable success body.
	KindBackend ErrorKind = "backend_error"
	// KindTransport means no response was obtained.
	KindTransport ErrorKind = "transport_failure"
)

// Result is the outcome of every catalog operation. Data is set iff Success;
// Error and Kind are set iff not Success. Data may also be nil on success
// when the product API returned no body (delete).
type Result[T any] struct {
	Success bool
	Data    *T
	Error   string
	Kind    ErrorKind
}

func ok[T any](data *T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](kind ErrorKind, msg string) Result[T] {
	return Result[T]{Kind: kind, Error: msg}
}

// Err returns the failure as a Go error, or nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Error}
}

// Error is a failed Result expressed as an error value.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
