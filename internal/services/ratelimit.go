package services

import (
	"log"
	"sync"
	"time"
)

const rateWindow = 60 * time.Second

// RateLimiter bounds outbound Gemini calls to maxRequests per rolling
// 60-second window. It is shared by every in-flight request and must be
// injected wherever provider calls are made.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	requests    []time.Time // acceptance timestamps, oldest first

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter creates a limiter. The Gemini free tier allows 15 requests
// per minute, which is the default cap used by callers.
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequestsPerMinute,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Acquire blocks until a slot is free in the current window, records the
// acceptance and returns how long the caller waited (zero if none). The
// check-and-record step is atomic; the wait itself happens outside the lock
// so other callers keep making progress.
func (rl *RateLimiter) Acquire() time.Duration {
	var waited time.Duration

	for {
		rl.mu.Lock()
		now := rl.now()
		rl.evict(now)

		if len(rl.requests) < rl.maxRequests {
			rl.requests = append(rl.requests, now)
			rl.mu.Unlock()
			if waited > 0 {
				log.Printf("Rate limit reached, waited %.1fs for a Gemini slot", waited.Seconds())
			}
			return waited
		}

		wait := rateWindow - now.Sub(rl.requests[0])
		rl.mu.Unlock()

		if wait > 0 {
			rl.sleep(wait)
			waited += wait
		}
	}
}

// Remaining reports how many calls are still free in the current window.
func (rl *RateLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.evict(rl.now())
	remaining := rl.maxRequests - len(rl.requests)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// evict drops acceptances at least one full window old. The boundary is
// inclusive so a caller woken after exactly `rateWindow - age` finds the
// oldest slot free. Caller holds the lock.
func (rl *RateLimiter) evict(now time.Time) {
	i := 0
	for i < len(rl.requests) && now.Sub(rl.requests[i]) >= rateWindow {
		i++
	}
	if i > 0 {
		rl.requests = append(rl.requests[:0], rl.requests[i:]...)
	}
}
