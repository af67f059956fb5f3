// File: internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/observability"
)

// Environment variables consulted by NewTransport.
const (
	EnvBackend        = "LOOPAUTOMA_BACKEND"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIEndpoint = "OPENAI_API_ENDPOINT"
	EnvOpenAIModel    = "OPENAI_MODEL"
	EnvGeminiKey      = "GEMINI_API_KEY"
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
)

// NewTransport selects the provider transport. LOOPAUTOMA_BACKEND=fake forces
// the deterministic mock regardless of the configured provider.
func NewTransport(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Transport, error) {
	if os.Getenv(EnvBackend) == "fake" || cfg.Provider == config.ProviderMock {
		logger.Info("Using deterministic mock LLM backend")
		return NewMockTransport(), nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAITransport(
			firstNonEmpty(cfg.APIKey, os.Getenv(EnvOpenAIKey)),
			firstNonEmpty(cfg.Endpoint, os.Getenv(EnvOpenAIEndpoint)),
			firstNonEmpty(cfg.Model, os.Getenv(EnvOpenAIModel)),
			cfg.APITimeout,
		)
	case config.ProviderGemini:
		return NewGeminiTransport(ctx,
			firstNonEmpty(cfg.APIKey, os.Getenv(EnvGeminiKey)),
			cfg.Endpoint, cfg.Model, cfg.APITimeout)
	case config.ProviderAnthropic:
		return NewAnthropicTransport(
			firstNonEmpty(cfg.APIKey, os.Getenv(EnvAnthropicKey)),
			cfg.Endpoint, cfg.Model, cfg.APITimeout)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [openai, gemini, anthropic, mock]", cfg.Provider)
	}
}

// NewClient builds the retrying client for the configured provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger, metrics *observability.Metrics) (*RetryingClient, error) {
	transport, err := NewTransport(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewRetryingClient(transport, OptionsFromConfig(cfg), logger, metrics), nil
}

// OptionsFromConfig maps the LLM config section onto client options.
func OptionsFromConfig(cfg config.LLMConfig) Options {
	opts := DefaultOptions()
	if cfg.MaxAttempts > 0 {
		opts.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		opts.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.MaxTokens > 0 {
		opts.MaxTokens = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		opts.Temperature = cfg.Temperature
	}
	opts.Fallback = FallbackPolicyFromConfig(cfg.Fallback)
	opts.RetryUnmatched = cfg.Fallback.RetryUnmatched
	return opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
