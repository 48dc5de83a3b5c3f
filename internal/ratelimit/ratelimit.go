// Package ratelimit bounds the outbound request rate to the upstream API
// with a token bucket. Smooth, self-correcting limiting avoids the bursty
// retry storms that fixed-window limiting produces under 429 pressure.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Bucket is a token-bucket limiter shared by all concurrent fetch tasks.
// The first Burst acquires return immediately; after the bucket drains,
// each acquire waits roughly 1/Rate seconds. Token state is serialized
// internally, so concurrent Acquire calls never compute replenishment
// from a stale timestamp.
type Bucket struct {
	limiter *rate.Limiter
	rps     float64
	burst   int
}

// NewBucket creates a token bucket replenishing rps tokens per second
// with capacity burst.
func NewBucket(rps float64, burst int) *Bucket {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
	}
}

// Acquire blocks until a token is available or ctx is done.
func (b *Bucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Rate returns the configured tokens-per-second rate.
func (b *Bucket) Rate() float64 { return b.rps }

// Burst returns the configured bucket capacity.
func (b *Bucket) Burst() int { return b.burst }
