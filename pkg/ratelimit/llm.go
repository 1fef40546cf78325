// Package ratelimit implements the dual token-bucket LLM limiter and the
// per-host HTTP limiter (spec §4.3). No component may issue an LLM call or
// outbound HTTP request without acquiring through one of these.
package ratelimit

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// LLMLimiter composes a requests/minute bucket and a tokens/minute bucket.
// Acquire blocks until both allow the acquisition.
type LLMLimiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter

	baseBackoff time.Duration
	maxBackoff  time.Duration
	maxAttempts int
}

// LLMLimiterConfig configures an LLMLimiter.
type LLMLimiterConfig struct {
	RPM         int
	TPM         int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int
}

// NewLLMLimiter builds the dual bucket described in spec §4.3.
func NewLLMLimiter(cfg LLMLimiterConfig) *LLMLimiter {
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	rpm := rate.Limit(float64(cfg.RPM) / 60.0)
	tpm := rate.Limit(float64(cfg.TPM) / 60.0)
	return &LLMLimiter{
		requests:    rate.NewLimiter(rpm, maxInt(cfg.RPM, 1)),
		tokens:      rate.NewLimiter(tpm, maxInt(cfg.TPM, 1)),
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Acquire blocks until both the request bucket (1) and the token bucket
// (estimatedTokens) admit the call, honoring ctx cancellation. Waiters are
// served FIFO by the underlying golang.org/x/time/rate reservation queue,
// which is what gives concurrent callers the fairness spec §8 scenario 5
// requires.
func (l *LLMLimiter) Acquire(ctx context.Context, estimatedTokens int) error {
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	reservation := l.tokens.ReserveN(time.Now(), maxInt(estimatedTokens, 1))
	if !reservation.OK() {
		return errTokenBudgetExceeded
	}
	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}

// MaxAttempts is the configured retry ceiling (spec §4.3: max attempts = 5).
func (l *LLMLimiter) MaxAttempts() int { return l.maxAttempts }

// Backoff computes the exponential-backoff-with-jitter delay for attempt
// (1-indexed), honoring a server-supplied retry-after hint when present
// (spec §4.3: delay = base × 2^attempt × uniform(0.5, 1.5)).
func (l *LLMLimiter) Backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	raw := float64(l.baseBackoff) * math.Pow(2, float64(attempt))
	jittered := raw * (0.5 + rand.Float64())
	d := time.Duration(jittered)
	if d > l.maxBackoff {
		d = l.maxBackoff
	}
	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
