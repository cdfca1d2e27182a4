// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package shaper implements the priority shaper: a token-bucket rate
// limiter composed with a bounded preallocated FIFO that tail-drops
// Normal-priority frames under saturation.
package shaper

import "time"

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// TokenBucket is a continuous-refill byte-rate limiter. All accounting
// is in integer bytes; tokens never go negative and never exceed
// capacity.
type TokenBucket struct {
	rateBytesPerSec int64
	capacity        int64
	tokens          int64
	lastRefill      time.Time
	clock           Clock
}

// NewTokenBucket builds a bucket for rateMbps megabits per second.
// Capacity is max(15000, rate_bytes_per_sec*0.02) bytes — roughly a
// 20ms burst, floored at 15KB. clock may be nil to use time.Now.
func NewTokenBucket(rateMbps float64, clock Clock) *TokenBucket {
	if clock == nil {
		clock = realClock{}
	}

	rate := int64(rateMbps * 1e6 / 8)
	capacity := rate / 50 // rate * 0.02
	if capacity < 15000 {
		capacity = 15000
	}

	return &TokenBucket{
		rateBytesPerSec: rate,
		capacity:        capacity,
		tokens:          capacity,
		lastRefill:      clock.Now(),
		clock:           clock,
	}
}

// refill adds elapsed*rate tokens since the last refill, saturating at
// capacity. last_refill only advances when tokens were actually added,
// so a burst of zero-duration calls never drifts the clock forward.
func (b *TokenBucket) refill() {
	now := b.clock.Now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}

	added := elapsed.Nanoseconds() * b.rateBytesPerSec / int64(time.Second)
	if added <= 0 {
		return
	}

	b.tokens += added
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// TryConsume refills, then consumes n bytes if available.
func (b *TokenBucket) TryConsume(n int) bool {
	b.refill()
	if b.tokens >= int64(n) {
		b.tokens -= int64(n)
		return true
	}
	return false
}

// Tokens returns the current token count, for tests and telemetry.
func (b *TokenBucket) Tokens() int64 { return b.tokens }

// Capacity returns the bucket's burst capacity in bytes.
func (b *TokenBucket) Capacity() int64 { return b.capacity }

// RateBytesPerSec returns the configured refill rate.
func (b *TokenBucket) RateBytesPerSec() int64 { return b.rateBytesPerSec }
