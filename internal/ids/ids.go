// Package ids provides the small set of process-wide helpers every other
// package leans on: id generation, timestamp formatting, and the uniform
// response envelope used at the tool-call boundary.
package ids

import (
	"time"

	"github.com/google/uuid"
)

// New returns a fresh UUID4 string suitable for memory, summary, and topic
// identifiers.
func New() string {
	return uuid.New().String()
}

// Now returns the current wall-clock time formatted the way every timestamp
// column in the relational store expects: RFC3339 with second precision.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Envelope is the uniform result shape returned by every MCP tool; the
// engine's own operations return typed results that internal/mcptools wraps.
type Envelope struct {
	Status       string         `json:"status"`
	Message      string         `json:"message"`
	Data         map[string]any `json:"-"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
}

// OK builds a success envelope. data is flattened into the top-level map at
// marshal time by Map(); it is never wrapped in a nested "data" key, matching
// the flattened {status, message, ...data} shape the tool surface promises.
func OK(message string, data map[string]any) Envelope {
	return Envelope{Status: "ok", Message: message, Data: data}
}

// Err builds an error envelope. details, if non-nil, is surfaced under
// error_details.
func Err(message string, details map[string]any) Envelope {
	return Envelope{Status: "error", Message: message, ErrorDetails: details}
}

// Map flattens the envelope into a plain map[string]any ready for JSON
// marshaling, satisfying the {status, message, ...data} contract.
func (e Envelope) Map() map[string]any {
	out := map[string]any{
		"status":  e.Status,
		"message": e.Message,
	}
	for k, v := range e.Data {
		out[k] = v
	}
	if e.ErrorDetails != nil {
		out["error_details"] = e.ErrorDetails
	}
	return out
}
