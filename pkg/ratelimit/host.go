package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter is a per-host token bucket for outbound HTTP (spec §4.3
// "Crawler side"). One bucket is created lazily per host on first use.
type HostLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	default_ float64 // requests per second used for hosts with no override
	override map[string]float64
}

// NewHostLimiter builds a limiter with a default requests/second rate and
// optional overrides keyed by host name. An override applies only to a host
// equal to its key; there is no lookup by crawler source, so a
// `crawler.<source>.rate_per_second` entry (spec §6.4) takes effect only
// for a host named exactly like the source.
func NewHostLimiter(defaultRPS float64, overrides map[string]float64) *HostLimiter {
	if defaultRPS <= 0 {
		defaultRPS = 1
	}
	return &HostLimiter{
		buckets:  make(map[string]*rate.Limiter),
		default_: defaultRPS,
		override: overrides,
	}
}

// Acquire blocks until host's bucket admits one request.
func (h *HostLimiter) Acquire(ctx context.Context, host string) error {
	return h.bucketFor(host).Wait(ctx)
}

func (h *HostLimiter) bucketFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.buckets[host]; ok {
		return b
	}
	rps := h.default_
	if override, ok := h.override[host]; ok {
		rps = override
	}
	b := rate.NewLimiter(rate.Limit(rps), 1)
	h.buckets[host] = b
	return b
}
