package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/deusflow/logistics-alert/internal/logger"
)

// DailyQuota caps how many calls a paid API may receive per 24h window.
type DailyQuota struct {
	mu        sync.Mutex
	name      string
	count     int
	max       int
	resetTime time.Time
	now       func() time.Time
}

// NewDailyQuota creates a quota of limit calls per day; limit <= 0 means unlimited.
func NewDailyQuota(name string, limit int) *DailyQuota {
	return &DailyQuota{
		name:      name,
		max:       limit,
		resetTime: time.Now().Add(24 * time.Hour), // Reset daily
		now:       time.Now,
	}
}

// Use consumes one call, or returns an error when the quota is exhausted.
func (q *DailyQuota) Use() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkReset()

	if q.max > 0 && q.count >= q.max {
		logger.Warn("daily quota reached", "api", q.name, "used", q.count, "limit", q.max)
		return fmt.Errorf("%s daily limit exceeded (%d/%d)", q.name, q.count, q.max)
	}

	q.count++
	logger.Debug("quota usage", "api", q.name, "used", q.count, "limit", q.max)
	return nil
}

// GetStats returns current usage for the monitoring endpoint.
func (q *DailyQuota) GetStats() map[string]interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	return map[string]interface{}{
		"used":       q.count,
		"limit":      q.max,
		"reset_time": q.resetTime.Format(time.RFC3339),
	}
}

// checkReset resets the counter if reset time has passed
func (q *DailyQuota) checkReset() {
	now := q.now()
	if now.After(q.resetTime) {
		logger.Info("resetting daily quota", "api", q.name, "used", q.count)
		q.count = 0
		q.resetTime = now.Add(24 * time.Hour)
	}
}
