// Package infra provides shared infrastructure components for the servers.
package infra

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every request it guards.
type RateLimiter struct {
	lim *rate.Limiter
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests in a
// burst and regains one token every refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{lim: rate.NewLimiter(rate.Every(refillRate), maxTokens)}
}

// Allow takes a token if one is available without waiting.
func (rl *RateLimiter) Allow() bool {
	return rl.lim.Allow()
}

// AllowAt is Allow as of t.
func (rl *RateLimiter) AllowAt(t time.Time) bool {
	return rl.lim.AllowN(t, 1)
}

// Wait blocks until a token is available or ctx is done. It fails early when
// the next token would arrive after ctx's deadline.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.lim.Wait(ctx)
}
