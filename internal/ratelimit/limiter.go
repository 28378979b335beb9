// Package ratelimit provides a token bucket limiter for calls to the
// registration service.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ipdata/ipdata/internal/logging"
)

// The registration service allows 10 req/sec per token; stay at 80% with
// room for a short burst.
const (
	RegistryRate  = 8.0
	RegistryBurst = 20.0
)

const (
	slowWaitThreshold = 2 * time.Second
	slowWaitLogEvery  = 10 * time.Second
	minCooldown       = time.Second
)

// Limiter is a token bucket holding up to burst tokens and refilling at rate
// tokens per second. A cooldown (from a 429 Retry-After) blocks it entirely.
type Limiter struct {
	rate  float64
	burst float64
	now   func() time.Time
	log   *logging.Logger

	mu         sync.Mutex
	tokens     float64
	updated    time.Time
	blocked    time.Time
	lastNotice time.Time
}

// New returns a limiter with a full bucket.
func New(rate, burst float64) *Limiter {
	l := &Limiter{rate: rate, burst: burst, now: time.Now, log: logging.NewNopLogger()}
	l.tokens = burst
	l.updated = l.now()
	return l
}

// NewRegistryLimiter returns the limiter the registry client uses.
func NewRegistryLimiter(logger *logging.Logger) *Limiter {
	l := New(RegistryRate, RegistryBurst)
	if logger != nil {
		l.log = logger
	}
	return l
}

// Wait takes one token, sleeping until one is available or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delay := l.reserve()
		if delay == 0 {
			return nil
		}
		if delay > slowWaitThreshold {
			l.notice(delay)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve takes a token and returns 0, or returns how long to wait before
// trying again.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Before(l.blocked) {
		return l.blocked.Sub(now)
	}
	l.advance(now)
	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

func (l *Limiter) advance(now time.Time) {
	if elapsed := now.Sub(l.updated); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+elapsed.Seconds()*l.rate)
	}
	l.updated = now
}

func (l *Limiter) notice(delay time.Duration) {
	l.mu.Lock()
	now := l.now()
	due := now.Sub(l.lastNotice) >= slowWaitLogEvery
	if due {
		l.lastNotice = now
	}
	l.mu.Unlock()
	if due {
		l.log.Warn().Dur("wait", delay).Msg("Rate limited: waiting for registry capacity")
	}
}

// Cooldown blocks Wait for d, or one second when d is not positive. It never
// shortens a cooldown already in effect.
func (l *Limiter) Cooldown(d time.Duration) {
	if d <= 0 {
		d = minCooldown
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.blocked) {
		l.blocked = until
	}
}

// CooldownRemaining reports how long the current cooldown still blocks.
func (l *Limiter) CooldownRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return max(0, l.blocked.Sub(l.now()))
}

// Available returns the tokens that could be taken right now.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance(l.now())
	return l.tokens
}
