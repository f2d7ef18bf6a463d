package gotlm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures request throttling for a machine translator.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained rate; 0 uses 60
	Burst             int // Requests allowed at once; 0 uses RequestsPerMinute
}

// NewLimiter builds a token bucket limiter from the config.
func (c RateLimitConfig) NewLimiter() *rate.Limiter {
	rpm := c.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := c.Burst
	if burst <= 0 {
		burst = rpm
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// RateLimitedTranslator throttles calls to a MachineTranslator.
type RateLimitedTranslator struct {
	next    MachineTranslator
	limiter *rate.Limiter
}

// NewRateLimitedTranslator wraps next with a limiter built from cfg.
func NewRateLimitedTranslator(next MachineTranslator, cfg RateLimitConfig) *RateLimitedTranslator {
	return &RateLimitedTranslator{next: next, limiter: cfg.NewLimiter()}
}

// Translate implements MachineTranslator, waiting for a token first.
func (r *RateLimitedTranslator) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Message: "rate limit wait cancelled", Cause: err}
	}
	return r.next.Translate(ctx, req)
}

// Limiter returns the underlying limiter.
func (r *RateLimitedTranslator) Limiter() *rate.Limiter {
	return r.limiter
}
