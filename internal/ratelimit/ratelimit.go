package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQuotaExceeded is returned by Use when the daily budget is spent.
var ErrQuotaExceeded = errors.New("daily AI quota exceeded")

// Kind names a budgeted request type.
type Kind string

const (
	KindDiscovery Kind = "discovery"
	KindImage     Kind = "image"
)

// Quota is a daily request budget per Kind. A limit of 0 means unlimited.
type Quota struct {
	mu        sync.Mutex
	limits    map[Kind]int
	used      map[Kind]int
	window    time.Duration
	resetTime time.Time
	now       func() time.Time
}

// NewQuota creates a quota that resets every 24 hours.
func NewQuota(limits map[Kind]int) *Quota {
	q := &Quota{
		limits: make(map[Kind]int, len(limits)),
		used:   make(map[Kind]int),
		window: 24 * time.Hour,
		now:    time.Now,
	}
	for k, v := range limits {
		q.limits[k] = v
	}
	q.resetTime = q.now().Add(q.window)
	return q
}

// Use consumes one request of kind, or returns ErrQuotaExceeded.
func (q *Quota) Use(kind Kind) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkReset()

	if limit := q.limits[kind]; limit > 0 && q.used[kind] >= limit {
		return fmt.Errorf("%s %d/%d until %s: %w", kind, q.used[kind], limit,
			q.resetTime.Format(time.RFC3339), ErrQuotaExceeded)
	}
	q.used[kind]++
	return nil
}

// Remaining returns how many requests of kind are left, or -1 when unlimited.
func (q *Quota) Remaining(kind Kind) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkReset()

	limit := q.limits[kind]
	if limit <= 0 {
		return -1
	}
	if left := limit - q.used[kind]; left > 0 {
		return left
	}
	return 0
}

// GetStats returns current usage for the metrics endpoint.
func (q *Quota) GetStats() map[string]interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkReset()

	stats := map[string]interface{}{
		"reset_time": q.resetTime.Format(time.RFC3339),
	}
	for _, k := range []Kind{KindDiscovery, KindImage} {
		stats[string(k)+"_used"] = q.used[k]
		stats[string(k)+"_limit"] = q.limits[k]
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (q *Quota) checkReset() {
	now := q.now()
	if now.Before(q.resetTime) {
		return
	}
	q.used = make(map[Kind]int)
	q.resetTime = now.Add(q.window)
}
