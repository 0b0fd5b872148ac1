package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock is a single-flight guard for batch executions, keyed by the
// payroll period. SETNX with a TTL covers both concurrent processes and
// a crashed run that never released its lock.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock creates a run lock with the given lease duration.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

func runKey(month, year int) string {
	return fmt.Sprintf("payroll:run:%04d-%02d", year, month)
}

// Acquire attempts to take the lock for (month, year). Returns false
// when another run already holds it.
func (l *RunLock) Acquire(ctx context.Context, month, year int) (bool, error) {
	ok, err := l.client.SetNX(ctx, runKey(month, year), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock for (month, year).
func (l *RunLock) Release(ctx context.Context, month, year int) error {
	if err := l.client.Del(ctx, runKey(month, year)).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
