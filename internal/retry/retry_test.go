package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func fastConfig() *Config {
	c := DefaultRetryConfig()
	c.InitialDelay = time.Millisecond
	c.MaxDelay = 2 * time.Millisecond
	return c
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()
	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", config.MaxRetries)
	}
	if config.InitialDelay != 100*time.Millisecond {
		t.Errorf("Expected InitialDelay to be 100ms, got %v", config.InitialDelay)
	}
	if config.BackoffFactor != 2.0 {
		t.Errorf("Expected BackoffFactor to be 2.0, got %f", config.BackoffFactor)
	}
}

func TestConfig_isRetryableError(t *testing.T) {
	config := DefaultRetryConfig()
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"database is locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"syntax error", errors.New("near \"SELEC\": syntax error"), false},
		{"context canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.isRetryableError(tt.err); got != tt.expected {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestConfig_calculateDelay(t *testing.T) {
	config := &Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}
	if d := config.calculateDelay(0); d != 100*time.Millisecond {
		t.Errorf("attempt 0: got %v", d)
	}
	if d := config.calculateDelay(2); d != 200*time.Millisecond {
		t.Errorf("attempt 2: got %v", d)
	}
	if d := config.calculateDelay(5); d != 300*time.Millisecond {
		t.Errorf("attempt 5 should be capped: got %v", d)
	}
}

func TestWithRetry_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("constraint failed")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one call and an error, got calls=%d err=%v", calls, err)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("connection reset by peer")
	})
	if err == nil || !strings.Contains(err.Error(), "after 4 attempts") {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Second
	err := WithRetry(ctx, cfg, func() error {
		cancel()
		return errors.New("database is locked")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("driver error %d", e.code) }

func TestConfig_WithClassifier(t *testing.T) {
	base := DefaultRetryConfig()
	cfg := base.WithClassifier(func(err error) bool {
		var ce codedError
		return errors.As(err, &ce) && ce.code == 5
	})
	if base.Transient != nil {
		t.Fatal("WithClassifier must not modify the receiver")
	}
	if !cfg.isRetryableError(fmt.Errorf("insert: %w", codedError{code: 5})) {
		t.Error("expected classified error to be retryable")
	}
	if cfg.isRetryableError(codedError{code: 19}) {
		t.Error("expected unclassified error to stay non-retryable")
	}
	if !cfg.isRetryableError(errors.New("driver: bad connection")) {
		t.Error("expected substring fallback to still apply")
	}
	if cfg.isRetryableError(context.Canceled) {
		t.Error("context cancellation must never be retried")
	}
}
