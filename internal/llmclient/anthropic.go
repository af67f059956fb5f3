// File: internal/llmclient/anthropic.go
package llmclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured for the anthropic provider.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicTransport calls the Messages API.
type AnthropicTransport struct {
	client anthropic.Client
	model  string
}

// NewAnthropicTransport builds a transport. The SDK's own retries are disabled.
func NewAnthropicTransport(apiKey, endpoint, model string, timeout time.Duration) (*AnthropicTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &AnthropicTransport{client: anthropic.NewClient(opts...), model: model}, nil
}

func (t *AnthropicTransport) Name() string { return "anthropic" }

func (t *AnthropicTransport) Complete(ctx context.Context, req *Request) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfBase64: &anthropic.Base64ImageSourceParam{
							Data:      base64.StdEncoding.EncodeToString(p.PNG),
							MediaType: anthropic.Base64ImageSourceMediaTypeImagePNG,
						},
					},
				},
			})
			continue
		}
		blocks = append(blocks, anthropic.NewTextBlock(p.Text))
	}

	msg, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(t.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		wrapped := fmt.Errorf("anthropic: %w", err)
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && isPermanentStatus(apiErr.StatusCode) {
			return "", Permanent(wrapped)
		}
		return "", wrapped
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("anthropic: response contained no text")
	}
	return text, nil
}
