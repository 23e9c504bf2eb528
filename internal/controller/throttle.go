package controller

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between fetches to the same host.
// Reservation is non-blocking: a worker due to fetch a throttled host gets
// a retry hint and returns the candidate to the frontier instead of
// blocking a worker slot.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewThrottle builds a per-host throttle. interval <= 0 disables it.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// TryReserve consumes a token for host if one is available. When the host
// is throttled it returns false and the interval to wait before retrying.
func (t *Throttle) TryReserve(host string) (bool, time.Duration) {
	if t.interval <= 0 {
		return true, 0
	}
	t.mu.Lock()
	limiter, ok := t.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[host] = limiter
	}
	t.mu.Unlock()

	if limiter.Allow() {
		return true, 0
	}
	return false, t.interval
}
