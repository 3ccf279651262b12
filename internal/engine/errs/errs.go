// Package errs defines the engine's error taxonomy, generalized from the
// teacher's llm.Error/llm.ErrorType shape (llm/errors.go) from LLM-call
// errors to the engine's own domain.
package errs

import "errors"

// Kind categorizes an engine-level failure.
type Kind string

const (
	KindInvalidArgument       Kind = "invalid_argument"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindStoreIO               Kind = "store_io"
	KindPartialWrite          Kind = "partial_write"
	KindInternal              Kind = "internal"
)

// Error is the engine's error type. The boundary layer (internal/mcptools)
// checks it with errors.As to decide how to shape a tool result.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidArgument reports a request that failed boundary or engine-level
// validation.
func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

// NotFound reports a lookup that found nothing with the given identity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict reports a request that cannot be satisfied given the current
// state of a resource.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// DependencyUnavailable reports that an optional collaborator (the
// summarizer, most commonly) could not service the request.
func DependencyUnavailable(message string, cause error) *Error {
	return &Error{Kind: KindDependencyUnavailable, Message: message, Cause: cause}
}

// StoreIO reports a failure talking to the relational or vector store.
func StoreIO(message string, cause error) *Error {
	return &Error{Kind: KindStoreIO, Message: message, Cause: cause}
}

// PartialWrite reports that the relational write succeeded but the paired
// vector write did not, per the dual-write-is-best-effort contract.
func PartialWrite(message string, cause error) *Error {
	return &Error{Kind: KindPartialWrite, Message: message, Cause: cause}
}

// Internal reports an unexpected failure, including recovered panics.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
