package summarize

import "errors"

// Error is a provider-neutral summarization error, trimmed from the
// teacher's llm.Error: no RetryAfter/StatusCode bookkeeping, since retrying
// lives inside the backend — anthropic.go retries behind cenkalti/backoff
// before returning an Error, and openai.go makes a single attempt per call.
type Error struct {
	Type        ErrorType
	Message     string
	ProviderErr error
}

// ErrorType categorizes a summarization failure.
type ErrorType string

const (
	ErrorTypeUnavailable    ErrorType = "dependency_unavailable"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeProvider       ErrorType = "provider"
)

func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// IsUnavailable reports whether err indicates the summarizer has no usable
// backend configured (missing API key), as opposed to a call that failed.
func IsUnavailable(err error) bool {
	var sErr *Error
	return errors.As(err, &sErr) && sErr.Type == ErrorTypeUnavailable
}
