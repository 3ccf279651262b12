package summarize

import "context"

// NullSummarizer is used when the backend selected by SUMMARIZER_BACKEND
// has no API key configured, or is not recognized. Every call fails with
// ErrorTypeUnavailable, which the engine maps to a "summarization
// unavailable" response rather than crashing a store/update that would
// otherwise succeed.
type NullSummarizer struct{}

// Summarize implements Summarizer.
func (NullSummarizer) Summarize(_ context.Context, _ string, _ Kind, _ Length, _ string) (string, error) {
	return "", &Error{Type: ErrorTypeUnavailable, Message: "no summarization backend configured"}
}
