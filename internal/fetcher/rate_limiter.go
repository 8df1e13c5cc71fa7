package fetcher

import (
	"context"
	"sync"
	"time"
)

// RateLimiter bounds per-host concurrency and requests per minute. A slot is
// held from Acquire until the returned release func is called.
type RateLimiter struct {
	maxConcurrent int
	rpm           int
	hosts         map[string]*hostLimiter
	mu            sync.Mutex
}

type hostLimiter struct {
	sem         chan struct{}
	windowStart time.Time
	requests    int
	mu          sync.Mutex
}

func NewRateLimiter(maxConcurrent, rpm int) *RateLimiter {
	return &RateLimiter{
		maxConcurrent: maxConcurrent,
		rpm:           rpm,
		hosts:         make(map[string]*hostLimiter),
	}
}

func (rl *RateLimiter) host(host string) *hostLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.hosts[host]
	if !exists {
		limiter = &hostLimiter{sem: make(chan struct{}, rl.maxConcurrent)}
		rl.hosts[host] = limiter
	}
	return limiter
}

func (rl *RateLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	limiter := rl.host(host)

	select {
	case limiter.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-limiter.sem }

	if err := limiter.take(ctx, rl.rpm); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// take counts one request in the current one-minute window, waiting for the
// next window when this one is full.
func (h *hostLimiter) take(ctx context.Context, rpm int) error {
	for {
		h.mu.Lock()
		now := time.Now()
		if now.Sub(h.windowStart) >= time.Minute {
			h.windowStart = now
			h.requests = 0
		}
		if h.requests < rpm {
			h.requests++
			h.mu.Unlock()
			return nil
		}
		wait := time.Minute - now.Sub(h.windowStart)
		h.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
