package gotlm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"
)

// RetryPolicy controls how failed machine translation calls are retried.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Upper bound on any single delay
	Jitter      float64       // Fraction of each delay randomised, 0 disables
}

// DefaultRetryPolicy returns the policy used by the translation service.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    20 * time.Second,
		Jitter:      0.2,
	}
}

// backoff returns the delay to wait after the given failed attempt (0-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << attempt
	if delay <= 0 || delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration(spread * (2*rand.Float64() - 1))
	}
	return delay
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are exhausted.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Provider errors carry their own flag; network timeouts are retried;
// cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// RetryingTranslator wraps a MachineTranslator with retries.
type RetryingTranslator struct {
	next   MachineTranslator
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryingTranslator wraps next with the given policy.
func NewRetryingTranslator(next MachineTranslator, policy RetryPolicy, logger *slog.Logger) *RetryingTranslator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingTranslator{next: next, policy: policy, logger: logger}
}

// Translate implements MachineTranslator.
func (r *RetryingTranslator) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	attempt := 0
	return Retry(ctx, r.policy, func(ctx context.Context) (map[string]string, error) {
		attempt++
		out, err := r.next.Translate(ctx, req)
		if err != nil && IsRetryable(err) {
			r.logger.Warn("machine translation failed, retrying",
				"attempt", attempt,
				"target", req.TargetLocale,
				"error", err)
		}
		return out, err
	})
}
