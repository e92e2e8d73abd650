package rpcclient

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a single global token bucket gating outbound RPC calls.
// It is the same refill-by-elapsed-time bucket the server's per-IP
// RateLimiter uses, but where that one rejects a request once its bucket
// is empty, this one blocks the caller until a token is available — an
// RPC client has no HTTP response to attach a 429 to, so waiting is the
// only sensible behavior.
type rateLimiter struct {
	rate     float64 // tokens added per second
	burst    float64
	mu       sync.Mutex
	tokens   float64
	lastSeen time.Time
}

func newRateLimiter(ratePerSec float64) *rateLimiter {
	if ratePerSec <= 0 {
		return nil
	}
	return &rateLimiter{
		rate:     ratePerSec,
		burst:    ratePerSec,
		tokens:   ratePerSec,
		lastSeen: time.Now(),
	}
}

// wait blocks until a token is available or ctx is canceled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		d := rl.reserveOrWait()
		if d == 0 {
			return nil
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserveOrWait refills the bucket, consumes a token if one is available,
// and returns the duration to wait before trying again (zero if a token
// was consumed).
func (rl *rateLimiter) reserveOrWait() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastSeen).Seconds()
	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastSeen = now

	if rl.tokens >= 1.0 {
		rl.tokens--
		return 0
	}

	return time.Duration((1.0 - rl.tokens) / rl.rate * float64(time.Second))
}
