package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(rate, burst float64) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(rate, burst)
	l.now = clock.Now
	l.updated = clock.Now()
	return l, clock
}

func TestReserve(t *testing.T) {
	l, clock := newTestLimiter(2, 3)

	for i := 0; i < 3; i++ {
		if d := l.reserve(); d != 0 {
			t.Fatalf("burst token %d: delay %v", i, d)
		}
	}
	if d := l.reserve(); d != 500*time.Millisecond {
		t.Errorf("empty bucket delay = %v, want 500ms", d)
	}

	clock.Advance(500 * time.Millisecond)
	if d := l.reserve(); d != 0 {
		t.Errorf("after refill: delay %v", d)
	}

	clock.Advance(time.Hour)
	if got := l.Available(); got != 3 {
		t.Errorf("Available() = %v, want capped at 3", got)
	}
}

func TestCooldown(t *testing.T) {
	tests := []struct {
		name  string
		first time.Duration
		then  time.Duration
		want  time.Duration
	}{
		{"retry-after", 5 * time.Second, 0, 5 * time.Second},
		{"zero uses minimum", 0, 0, time.Second},
		{"shorter does not shorten", 10 * time.Second, 2 * time.Second, 10 * time.Second},
		{"longer extends", 2 * time.Second, 7 * time.Second, 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, clock := newTestLimiter(8, 20)
			l.Cooldown(tt.first)
			if tt.then != 0 {
				l.Cooldown(tt.then)
			}
			if got := l.CooldownRemaining(); got != tt.want {
				t.Errorf("CooldownRemaining() = %v, want %v", got, tt.want)
			}
			if d := l.reserve(); d != tt.want {
				t.Errorf("reserve() during cooldown = %v, want %v", d, tt.want)
			}

			clock.Advance(tt.want)
			if d := l.reserve(); d != 0 {
				t.Errorf("reserve() after cooldown = %v", d)
			}
			if got := l.CooldownRemaining(); got != 0 {
				t.Errorf("CooldownRemaining() after = %v", got)
			}
		})
	}
}

func TestWait(t *testing.T) {
	l := New(50, 1)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if waited := time.Since(start); waited < 10*time.Millisecond {
		t.Errorf("second Wait returned after %v, expected to block for a refill", waited)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	l := New(1, 1)
	l.Cooldown(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestWait_Concurrent(t *testing.T) {
	l := New(1000, 10)
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Wait(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := l.Available(); got > 10 {
		t.Errorf("Available() = %v exceeds burst", got)
	}
}
