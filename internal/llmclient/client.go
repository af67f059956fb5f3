// File: internal/llmclient/client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xkilldash9x/loopautoma/internal/observability"
	"github.com/xkilldash9x/loopautoma/internal/screen"
	"go.uber.org/zap"
)

// Client asks the decision oracle for the next step.
type Client interface {
	GeneratePrompt(ctx context.Context, req PromptRequest) (*Response, error)
}

// PromptRequest carries the captured regions, one PNG per region in order.
type PromptRequest struct {
	Regions      []screen.Region
	Images       [][]byte
	SystemPrompt string
	RiskGuidance string
}

// RetryError is returned once every attempt has failed.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("llm: failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error { return e.Last }

// Options tunes RetryingClient.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxTokens   int
	Temperature float32
	Fallback    FallbackPolicy
	// RetryUnmatched asks again, with a corrective instruction, when an answer
	// is neither valid JSON nor matches a keyword. When false such an answer is
	// taken as the low-confidence continuation straight away.
	RetryUnmatched bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxTokens:      300,
		Temperature:    0.7,
		Fallback:       DefaultFallbackPolicy(),
		RetryUnmatched: true,
	}
}

// RetryingClient implements Client on top of a Transport with bounded retries,
// linear backoff and tolerant response parsing.
type RetryingClient struct {
	transport Transport
	opts      Options
	logger    *zap.Logger
	metrics   *observability.Metrics

	// backoffFactory is replaced in tests.
	backoffFactory func() backoff.BackOff
}

// NewRetryingClient wraps transport. metrics may be nil.
func NewRetryingClient(transport Transport, opts Options, logger *zap.Logger, metrics *observability.Metrics) *RetryingClient {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	c := &RetryingClient{
		transport: transport,
		opts:      opts,
		logger:    logger.Named("llm_client").With(zap.String("provider", transport.Name())),
		metrics:   metrics,
	}
	c.backoffFactory = func() backoff.BackOff { return newLinearBackOff(c.opts.BaseDelay) }
	return c
}

// Transport exposes the wrapped transport.
func (c *RetryingClient) Transport() Transport { return c.transport }

// GeneratePrompt sends the system message and region images and decodes the answer.
//
// A transport failure is retried. An answer that fails the JSON contract is
// first run through the keyword fallback; if no keyword matches and attempts
// remain, the next attempt is prefixed with a corrective instruction. The final
// attempt, or any attempt when RetryUnmatched is off, accepts the
// low-confidence default instead of failing.
func (c *RetryingClient) GeneratePrompt(ctx context.Context, req PromptRequest) (*Response, error) {
	riskGuidance := req.RiskGuidance
	if riskGuidance == "" {
		riskGuidance = RiskGuidance
	}
	base := make([]Part, 0, len(req.Images)+1)
	base = append(base, Part{Text: BuildSystemMessage(req.SystemPrompt, riskGuidance)})
	for _, img := range req.Images {
		base = append(base, Part{PNG: img})
	}

	var (
		attempt    int
		corrective string
		result     *Response
	)

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		parts := base
		if corrective != "" {
			parts = append([]Part{{Text: corrective}}, base...)
		}

		start := time.Now()
		raw, err := c.transport.Complete(ctx, &Request{
			Parts:       parts,
			MaxTokens:   c.opts.MaxTokens,
			Temperature: c.opts.Temperature,
		})
		elapsed := time.Since(start)

		if err != nil {
			c.metrics.ObserveLLMAttempt(c.transport.Name(), "error", elapsed)
			c.logger.Warn("LLM request attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.opts.MaxAttempts),
				zap.Duration("duration", elapsed),
				zap.Error(err))
			if IsPermanent(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		resp, parseErr := parseStructured(raw)
		if parseErr == nil {
			c.metrics.ObserveLLMAttempt(c.transport.Name(), "success", elapsed)
			c.logger.Debug("LLM response parsed",
				zap.Int("attempt", attempt),
				zap.Stringer("kind", resp.Kind),
				zap.Duration("duration", elapsed))
			result = resp
			return nil
		}

		c.metrics.ObserveLLMAttempt(c.transport.Name(), "unparsed", elapsed)
		if fb, matched := c.opts.Fallback.Classify(raw); matched {
			c.logger.Warn("Structured parse failed; keyword fallback matched",
				zap.Int("attempt", attempt),
				zap.Stringer("kind", fb.Kind),
				zap.NamedError("parse_error", parseErr))
			result = fb
			return nil
		}

		if !c.opts.RetryUnmatched || attempt >= c.opts.MaxAttempts {
			c.logger.Warn("Structured parse failed; using low-confidence continuation",
				zap.Int("attempt", attempt),
				zap.NamedError("parse_error", parseErr))
			result = c.opts.Fallback.Default(raw)
			return nil
		}

		corrective = correctiveInstruction(parseErr)
		return fmt.Errorf("unparseable response: %w", parseErr)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.backoffFactory(), uint64(c.opts.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("Retrying LLM request", zap.Int("next_attempt", attempt+1), zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("llm request aborted after %d attempts: %w", attempt, ctxErr)
			}
		}
		return nil, &RetryError{Attempts: attempt, Last: err}
	}
	return result, nil
}

// linearBackOff waits base*n before the n-th retry, so every wait is strictly
// longer than the one before.
type linearBackOff struct {
	base    time.Duration
	retries int
}

func newLinearBackOff(base time.Duration) *linearBackOff {
	return &linearBackOff{base: base}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.base * time.Duration(b.retries)
}

func (b *linearBackOff) Reset() { b.retries = 0 }
