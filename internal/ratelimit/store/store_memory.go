package store

import (
	"context"
	"sync"
	"time"

	"kycgate/internal/ratelimit/models"
)

// InMemory implements a sliding-window limiter per key. It is process-local;
// use the Redis store when more than one replica serves traffic.
type InMemory struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewInMemory creates a limiter store. A nil clock uses time.Now.
func NewInMemory(clock func() time.Time) *InMemory {
	if clock == nil {
		clock = time.Now
	}
	return &InMemory{windows: make(map[string][]time.Time), now: clock}
}

// Allow counts one request against key if the window has room.
func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := prune(s.windows[key], now.Add(-window))
	if len(stamps) < limit {
		stamps = append(stamps, now)
		s.windows[key] = stamps
		return &models.Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - len(stamps),
			ResetAt:   stamps[0].Add(window),
		}, nil
	}
	s.windows[key] = stamps

	resetAt := now.Add(window)
	if len(stamps) > 0 {
		resetAt = stamps[0].Add(window)
	}
	return &models.Result{
		Limit:      limit,
		ResetAt:    resetAt,
		RetryAfter: retryAfter(now, resetAt),
	}, nil
}

// prune drops timestamps at or before cutoff. stamps is ordered.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}

func retryAfter(now, resetAt time.Time) int {
	secs := int((resetAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
