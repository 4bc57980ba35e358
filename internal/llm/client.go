// Package llm wraps Genkit text generation behind a small client with
// retry, backoff and rate limiting. Workflow code consumes it through a
// consumer-defined interface so tests can inject scripted fakes.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/bedtimenews/newsagent/internal/log"
)

// RetryConfig configures the retry behavior for LLM calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Request describes a single text generation call.
type Request struct {
	Model       string  // OpenAI model name without provider prefix
	System      string  // system prompt, may be empty
	Prompt      string  // user prompt
	Temperature float64 // 0 means provider default
}

// Client performs text generation through Genkit with bounded retry and
// per-attempt rate limiting.
type Client struct {
	g           *genkit.Genkit
	retryConfig RetryConfig
	rateLimiter *rate.Limiter
	logger      log.Logger
}

// New creates a Client. limiter may be nil to disable rate limiting.
func New(g *genkit.Genkit, retryConfig RetryConfig, limiter *rate.Limiter, logger log.Logger) *Client {
	return &Client{
		g:           g,
		retryConfig: retryConfig,
		rateLimiter: limiter,
		logger:      logger.With("component", "llm"),
	}
}

// Complete runs a generation call and returns the full response text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.generateWithRetry(ctx, c.buildOptions(req))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Stream runs a generation call, invoking onChunk for each streamed text
// fragment, and returns the full response text. Streamed calls are not
// retried after the first chunk has been delivered.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(text string) error) (string, error) {
	delivered := false
	opts := append(c.buildOptions(req), ai.WithStreaming(
		func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			if text == "" {
				return nil
			}
			delivered = true
			return onChunk(text)
		}))

	var lastErr error
	delay := c.retryConfig.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := genkit.Generate(ctx, c.g, opts...)
		if err == nil {
			return resp.Text(), nil
		}

		lastErr = err

		// Once tokens have reached the caller, a retry would replay them.
		if delivered || !retryableError(err) {
			return "", fmt.Errorf("generate: %w", err)
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		c.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retryConfig.MaxInterval)
		}
	}

	return "", fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		c.retryConfig.MaxRetries, time.Since(start), lastErr)
}

func (c *Client) buildOptions(req Request) []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithModelName("openai/" + req.Model),
		ai.WithPrompt(req.Prompt),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if req.Temperature > 0 {
		opts = append(opts, ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature: req.Temperature,
		}))
	}
	return opts
}

// generateWithRetry executes a generation with exponential backoff retry.
//
// Features:
//   - Rate limits EACH attempt
//   - Tracks elapsed time for observability
//   - Exponential backoff with configurable max interval
func (c *Client) generateWithRetry(ctx context.Context, opts []ai.GenerateOption) (*ai.ModelResponse, error) {
	var lastErr error
	delay := c.retryConfig.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := genkit.Generate(ctx, c.g, opts...)
		if err == nil {
			c.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err

		// Non-retryable error - fail immediately
		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}

		// Last attempt - don't sleep
		if attempt == c.retryConfig.MaxRetries {
			break
		}

		c.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retryConfig.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		c.retryConfig.MaxRetries, time.Since(start), lastErr)
}
