package services

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned when a recipient has used up its window
var ErrRateLimited = errors.New("rate limit exceeded")

// NotifyRateLimiter caps notifications per recipient within a sliding window
type NotifyRateLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewNotifyRateLimiter creates a limiter allowing maxRequests per window.
// now may be nil.
func NewNotifyRateLimiter(maxRequests int, window time.Duration, now func() time.Time) *NotifyRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &NotifyRateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         now,
	}
}

// Allow records a send for recipient or returns ErrRateLimited
func (rl *NotifyRateLimiter) Allow(recipient string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanupOldRequests(recipient, now)

	if len(rl.requests[recipient]) >= rl.maxRequests {
		return fmt.Errorf("%w: maximum %d messages per %v", ErrRateLimited, rl.maxRequests, rl.window)
	}

	rl.requests[recipient] = append(rl.requests[recipient], now)
	return nil
}

// cleanupOldRequests removes requests outside the time window
func (rl *NotifyRateLimiter) cleanupOldRequests(recipient string, now time.Time) {
	requests, exists := rl.requests[recipient]
	if !exists {
		return
	}

	cutoff := now.Add(-rl.window)
	valid := requests[:0]
	for _, req := range requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}

	if len(valid) == 0 {
		delete(rl.requests, recipient)
	} else {
		rl.requests[recipient] = valid
	}
}
