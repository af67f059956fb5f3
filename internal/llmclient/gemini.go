// File: internal/llmclient/gemini.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured for the gemini provider.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiTransport calls the Gemini API through the genai SDK.
type GeminiTransport struct {
	client *genai.Client
	model  string
}

// NewGeminiTransport builds a transport. endpoint overrides the API base URL.
func NewGeminiTransport(ctx context.Context, apiKey, endpoint, model string, timeout time.Duration) (*GeminiTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiTransport{client: client, model: model}, nil
}

func (t *GeminiTransport) Name() string { return "gemini" }

func (t *GeminiTransport) Complete(ctx context.Context, req *Request) (string, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: p.PNG, MIMEType: "image/png"}})
			continue
		}
		parts = append(parts, &genai.Part{Text: p.Text})
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}
