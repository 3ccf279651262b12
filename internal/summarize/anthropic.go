package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// AnthropicSummarizer calls Claude via the Messages API. The retry
// discipline is lifted directly from the teacher's
// memory/anthropic_summarizer.go: exponential backoff with jitter, a
// five-retry ceiling, and a hard distinction between retryable 429/5xx
// responses and permanent 4xx ones — but the transport itself is the
// anthropic-sdk-go client rather than a hand-rolled http.Request, since
// that's the real dependency the teacher's go.mod already carries for its
// Anthropic provider.
type AnthropicSummarizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	logger    zerolog.Logger
}

// NewAnthropicSummarizer returns a configured summarizer.
func NewAnthropicSummarizer(apiKey, model string, maxTokens int64, logger zerolog.Logger) (*AnthropicSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		model = "claude-3.5-haiku-latest"
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicSummarizer{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With().Str("component", "anthropicSummarizer").Logger(),
	}, nil
}

// Summarize implements Summarizer.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, text string, kind Kind, length Length, query string) (string, error) {
	systemPrompt, err := buildSystemPrompt(kind, length, query)
	if err != nil {
		return "", &Error{Type: ErrorTypeInvalidRequest, Message: err.Error()}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(text))),
		},
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 1 * time.Second
	eb.Multiplier = 2.0
	eb.MaxInterval = 60 * time.Second
	eb.MaxElapsedTime = 5 * time.Minute
	eb.RandomizationFactor = 0.2

	backoffConfig := backoff.WithMaxRetries(eb, 5)

	var result string
	var lastErr error
	operation := func() error {
		message, err := s.client.Messages.New(ctx, params)
		if err != nil {
			lastErr = err
			var apiErr *anthropic.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
				return backoff.Permanent(err)
			}
			s.logger.Warn().Err(err).Msg("Anthropic request failed, retrying")
			return err
		}

		var b strings.Builder
		for _, blockUnion := range message.Content {
			if tb, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(tb.Text)
			}
		}
		summary := strings.TrimSpace(b.String())
		if summary == "" {
			return backoff.Permanent(&Error{Type: ErrorTypeProvider, Message: "empty summary text"})
		}
		result = summary
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoffConfig, ctx)); err != nil {
		var sErr *Error
		if errors.As(err, &sErr) {
			return "", sErr
		}
		if lastErr != nil {
			return "", &Error{Type: ErrorTypeProvider, Message: "Anthropic request failed", ProviderErr: lastErr}
		}
		return "", &Error{Type: ErrorTypeProvider, Message: "Anthropic request failed", ProviderErr: err}
	}
	return result, nil
}
