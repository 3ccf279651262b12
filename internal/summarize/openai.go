package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterSummarizer calls an OpenRouter-compatible chat completions
// endpoint via sashabaranov/go-openai, the same client the teacher's
// llm/openai package wraps — OpenRouter is OpenAI-API-compatible, so only
// the base URL changes.
type OpenRouterSummarizer struct {
	client *openai.Client
	model  string
}

// NewOpenRouterSummarizer returns a summarizer backed by an
// OpenAI-compatible chat completions endpoint. baseURL is required since
// the whole point of this backend is talking to OpenRouter rather than
// OpenAI itself.
func NewOpenRouterSummarizer(apiKey, baseURL, model string) (*OpenRouterSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		model = "openai/gpt-4o-mini"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouterSummarizer{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Summarize implements Summarizer.
func (s *OpenRouterSummarizer) Summarize(ctx context.Context, text string, kind Kind, length Length, query string) (string, error) {
	systemPrompt, err := buildSystemPrompt(kind, length, query)
	if err != nil {
		return "", &Error{Type: ErrorTypeInvalidRequest, Message: err.Error()}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(text)},
		},
	})
	if err != nil {
		return "", convertOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Type: ErrorTypeProvider, Message: "no choices in response"}
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", &Error{Type: ErrorTypeProvider, Message: "empty summary text"}
	}
	return summary, nil
}

func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return &Error{Type: ErrorTypeProvider, Message: "OpenRouter API error", ProviderErr: err}
	}
	switch apiErr.HTTPStatusCode {
	case http.StatusBadRequest:
		return &Error{Type: ErrorTypeInvalidRequest, Message: fmt.Sprintf("OpenRouter invalid request: %s", apiErr.Message), ProviderErr: err}
	default:
		return &Error{Type: ErrorTypeProvider, Message: fmt.Sprintf("OpenRouter API error: %s", apiErr.Message), ProviderErr: err}
	}
}
