// File: internal/llmclient/openai.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIEndpoint is the chat completions URL used when none is configured.
const DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// DefaultOpenAIModel is used when neither config nor OPENAI_MODEL name a model.
const DefaultOpenAIModel = "gpt-4o"

// OpenAITransport calls an OpenAI-compatible chat completions endpoint.
type OpenAITransport struct {
	client *openai.Client
	model  string
}

// NewOpenAITransport builds a transport. endpoint may be the API base URL or
// the full /chat/completions URL.
func NewOpenAITransport(apiKey, endpoint, model string, timeout time.Duration) (*OpenAITransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), "/chat/completions")
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAITransport{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (t *OpenAITransport) Name() string { return "openai" }

func (t *OpenAITransport) Complete(ctx context.Context, req *Request) (string, error) {
	content := make([]openai.ChatMessagePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    DataURL(p.PNG),
					Detail: openai.ImageURLDetailAuto,
				},
			})
			continue
		}
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: content,
		}},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyOpenAIError(err error) error {
	wrapped := fmt.Errorf("openai: %w", err)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.HTTPStatusCode) {
		return Permanent(wrapped)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isPermanentStatus(reqErr.HTTPStatusCode) {
		return Permanent(wrapped)
	}
	return wrapped
}
