// Package summarize is the summarization capability (C2): a provider-neutral
// interface plus OpenRouter and Anthropic backends, grounded on the
// teacher's llm package for the Go shape of a Client and on
// memory/anthropic_summarizer.go for the retry/backoff discipline. Unlike
// the teacher's llm.Client, there is no Stream method here — nothing in
// this system needs a token stream, only a single complete summary per
// call, so the interface is trimmed to that one method.
package summarize

import "context"

// Kind selects how the summary should relate to the source text.
type Kind string

const (
	KindAbstractive  Kind = "abstractive"
	KindExtractive   Kind = "extractive"
	KindQueryFocused Kind = "query_focused"
)

// Length selects the target sentence count.
type Length string

const (
	LengthShort    Length = "short"
	LengthMedium   Length = "medium"
	LengthDetailed Length = "detailed"
)

// Summarizer produces a condensed version of text. query is only consulted
// (and only required) when kind is KindQueryFocused.
type Summarizer interface {
	Summarize(ctx context.Context, text string, kind Kind, length Length, query string) (string, error)
}
