package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryConfig configures the retry behavior for storage operations.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for database calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// retryableError determines if a database error should trigger a retry.
// Covers connection-level failures and the serialization/deadlock SQLSTATEs;
// constraint and syntax errors fail immediately.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()

	if containsAny(errStr, "connection reset", "connection refused", "broken pipe",
		"timeout", "temporary", "unexpected eof") {
		return true
	}

	// 40001 serialization_failure, 40P01 deadlock_detected,
	// 57P03 cannot_connect_now, 53300 too_many_connections
	if containsAny(errStr, "40001", "40P01", "57P03", "53300") {
		return true
	}

	return false
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// withRetry applies bounded exponential backoff to a storage operation.
// All Store operations go through this single wrapper so retry policy is
// uniform across the package.
func (s *Store) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := s.retryConfig.InitialInterval

	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("%s: %w", op, err)
		}

		if attempt == s.retryConfig.MaxRetries {
			break
		}

		s.logger.Debug("retrying storage operation",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: context canceled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, s.retryConfig.MaxInterval)
		}
	}

	return fmt.Errorf("%s after %d retries: %w", op, s.retryConfig.MaxRetries, lastErr)
}
