package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bedtimenews/newsagent/internal/log"
)

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"deadlock", errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"), true},
		{"serialization", errors.New("ERROR: could not serialize access (SQLSTATE 40001)"), true},
		{"too many connections", errors.New("FATAL: sorry, too many clients already (SQLSTATE 53300)"), true},
		{"unique violation", errors.New("ERROR: duplicate key value (SQLSTATE 23505)"), false},
		{"syntax error", errors.New("ERROR: syntax error at or near (SQLSTATE 42601)"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	s := &Store{
		retryConfig: RetryConfig{MaxRetries: 3, InitialInterval: 1, MaxInterval: 1},
		logger:      log.NewNop(),
	}

	calls := 0
	err := s.withRetry(context.Background(), "test op", func(ctx context.Context) error {
		calls++
		return errors.New("ERROR: syntax error (SQLSTATE 42601)")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (permanent errors must not retry)", calls)
	}
}

func TestWithRetryRecoversAfterTransientError(t *testing.T) {
	s := &Store{
		retryConfig: RetryConfig{MaxRetries: 3, InitialInterval: 1, MaxInterval: 1},
		logger:      log.NewNop(),
	}

	calls := 0
	err := s.withRetry(context.Background(), "test op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	s := &Store{
		retryConfig: RetryConfig{MaxRetries: 2, InitialInterval: 1, MaxInterval: 1},
		logger:      log.NewNop(),
	}

	calls := 0
	err := s.withRetry(context.Background(), "test op", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
	if !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("error should mention retry count: %v", err)
	}
}
