package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/config"
)

func TestOpenAITransport(t *testing.T) {
	t.Run("sends multimodal user message", func(t *testing.T) {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  {\"task_complete\": true}  "},"finish_reason":"stop"}]}`))
		}))
		t.Cleanup(server.Close)

		tr, err := NewOpenAITransport("sk-test", server.URL+"/v1/chat/completions", "", 5*time.Second)
		require.NoError(t, err)

		out, err := tr.Complete(context.Background(), &Request{
			Parts:       []Part{{Text: "look"}, {PNG: []byte("png")}},
			MaxTokens:   300,
			Temperature: 0.7,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"task_complete": true}`, out)

		assert.Equal(t, DefaultOpenAIModel, captured["model"])
		assert.EqualValues(t, 300, captured["max_tokens"])
		messages := captured["messages"].([]interface{})
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]interface{})
		assert.Equal(t, "user", msg["role"])
		content := msg["content"].([]interface{})
		require.Len(t, content, 2)
		assert.Equal(t, "text", content[0].(map[string]interface{})["type"])
		image := content[1].(map[string]interface{})["image_url"].(map[string]interface{})
		assert.Equal(t, DataURL([]byte("png")), image["url"])
	})

	t.Run("auth failures are permanent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}))
		t.Cleanup(server.Close)

		tr, err := NewOpenAITransport("sk-bad", server.URL, "gpt-4o", 5*time.Second)
		require.NoError(t, err)

		_, err = tr.Complete(context.Background(), &Request{Parts: []Part{{Text: "x"}}})
		require.Error(t, err)
		assert.True(t, IsPermanent(err))
	})

	t.Run("server errors are retryable", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		}))
		t.Cleanup(server.Close)

		tr, err := NewOpenAITransport("sk-test", server.URL, "", 5*time.Second)
		require.NoError(t, err)

		_, err = tr.Complete(context.Background(), &Request{Parts: []Part{{Text: "x"}}})
		require.Error(t, err)
		assert.False(t, IsPermanent(err))
		assert.EqualValues(t, 1, hits.Load(), "transports never retry on their own")
	})

	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewOpenAITransport("", "", "", time.Second)
		assert.ErrorContains(t, err, "API key is required")
	})
}

func TestAnthropicTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		messages := body["messages"].([]interface{})
		content := messages[0].(map[string]interface{})["content"].([]interface{})
		assert.Equal(t, "image", content[1].(map[string]interface{})["type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[{"type":"text","text":"DONE"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	t.Cleanup(server.Close)

	tr, err := NewAnthropicTransport("ak-test", server.URL, "", 5*time.Second)
	require.NoError(t, err)

	out, err := tr.Complete(context.Background(), &Request{
		Parts:     []Part{{Text: "look"}, {PNG: []byte("png")}},
		MaxTokens: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "DONE", out)
}

func TestNewTransport(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("fake backend env forces mock", func(t *testing.T) {
		t.Setenv(EnvBackend, "fake")
		tr, err := NewTransport(ctx, config.LLMConfig{Provider: config.ProviderOpenAI}, logger)
		require.NoError(t, err)
		assert.Equal(t, "mock", tr.Name())
	})

	t.Run("mock provider", func(t *testing.T) {
		t.Setenv(EnvBackend, "")
		tr, err := NewTransport(ctx, config.LLMConfig{Provider: config.ProviderMock}, logger)
		require.NoError(t, err)
		assert.IsType(t, &MockTransport{}, tr)
	})

	t.Run("openai reads environment fallbacks", func(t *testing.T) {
		t.Setenv(EnvBackend, "")
		t.Setenv(EnvOpenAIKey, "sk-env")
		t.Setenv(EnvOpenAIModel, "gpt-4o-mini")
		tr, err := NewTransport(ctx, config.LLMConfig{Provider: config.ProviderOpenAI}, logger)
		require.NoError(t, err)
		require.IsType(t, &OpenAITransport{}, tr)
		assert.Equal(t, "gpt-4o-mini", tr.(*OpenAITransport).model)
	})

	t.Run("missing key is an error, not a silent mock", func(t *testing.T) {
		t.Setenv(EnvBackend, "")
		t.Setenv(EnvOpenAIKey, "")
		_, err := NewTransport(ctx, config.LLMConfig{Provider: config.ProviderOpenAI}, logger)
		assert.ErrorContains(t, err, "API key is required")
	})

	t.Run("gemini and anthropic construct with keys", func(t *testing.T) {
		t.Setenv(EnvBackend, "")
		tr, err := NewTransport(ctx, config.LLMConfig{Provider: config.ProviderGemini, APIKey: "g"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "gemini", tr.Name())

		tr, err = NewTransport(ctx, config.LLMConfig{Provider: config.ProviderAnthropic, APIKey: "a"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", tr.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv(EnvBackend, "")
		_, err := NewTransport(ctx, config.LLMConfig{Provider: "llama"}, logger)
		assert.ErrorContains(t, err, "unsupported LLM provider")
	})
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().LLM()
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, opts.BaseDelay)
	assert.Equal(t, 300, opts.MaxTokens)
	assert.False(t, opts.Fallback.WholeWord)
	assert.True(t, opts.RetryUnmatched)
	assert.Equal(t, 0.3, opts.Fallback.DefaultRisk)

	cfg.Fallback.RetryUnmatched = false
	cfg.Fallback.DefaultRisk = 0
	opts = OptionsFromConfig(cfg)
	assert.False(t, opts.RetryUnmatched)
	assert.Zero(t, opts.Fallback.DefaultRisk, "a configured zero risk is kept")
}
