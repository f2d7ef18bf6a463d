package gotlm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimitConfig_Defaults(t *testing.T) {
	l := RateLimitConfig{}.NewLimiter()

	if l.Burst() != 60 {
		t.Errorf("Expected burst 60, got %d", l.Burst())
	}
	if got := float64(l.Limit()); got < 0.99 || got > 1.01 {
		t.Errorf("Expected 1 token/s, got %v", got)
	}
}

func TestRateLimitConfig_Burst(t *testing.T) {
	l := RateLimitConfig{RequestsPerMinute: 6, Burst: 2}.NewLimiter()

	if !l.Allow() || !l.Allow() {
		t.Fatal("burst of 2 should allow two immediate requests")
	}
	if l.Allow() {
		t.Error("third immediate request should be throttled")
	}
}

func TestRateLimitedTranslator(t *testing.T) {
	flaky := &flakyTranslator{}
	tr := NewRateLimitedTranslator(flaky, RateLimitConfig{RequestsPerMinute: 600, Burst: 3})

	for range 3 {
		if _, err := tr.Translate(context.Background(), TranslateRequest{Texts: []string{"a"}}); err != nil {
			t.Fatalf("Translate failed: %v", err)
		}
	}
	if flaky.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", flaky.calls)
	}
}

func TestRateLimitedTranslator_ContextCancelled(t *testing.T) {
	flaky := &flakyTranslator{}
	tr := NewRateLimitedTranslator(flaky, RateLimitConfig{RequestsPerMinute: 1, Burst: 1})

	if _, err := tr.Translate(context.Background(), TranslateRequest{}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tr.Translate(ctx, TranslateRequest{})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Retryable {
		t.Error("cancelled wait should not be retryable")
	}
	if flaky.calls != 1 {
		t.Errorf("Expected 1 call, got %d", flaky.calls)
	}
}
