package session

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LockoutTTL       = 15 * time.Minute
	LockoutThreshold = 5
)

// Lockout tracks failed logins per username and locks the name once the
// threshold is reached inside the window.
type Lockout struct {
	client    *redis.Client
	threshold int64
	ttl       time.Duration
}

func NewLockout(client *redis.Client) *Lockout {
	return &Lockout{client: client, threshold: LockoutThreshold, ttl: LockoutTTL}
}

func countKey(username string) string {
	return "rada:lockout_count:" + strings.ToLower(username)
}

func lockKey(username string) string {
	return "rada:lockout:" + strings.ToLower(username)
}

// CheckLockout returns true if user is locked out
func (l *Lockout) CheckLockout(ctx context.Context, username string) (bool, error) {
	val, err := l.client.Get(ctx, lockKey(username)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "locked", nil
}

// RecordFailedAttempt increments failure count and locks if threshold reached
func (l *Lockout) RecordFailedAttempt(ctx context.Context, username string) error {
	key := countKey(username)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	// Window starts at the first failure
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.ttl).Err(); err != nil {
			return err
		}
	}

	if count >= l.threshold {
		pipe := l.client.TxPipeline()
		pipe.Set(ctx, lockKey(username), "locked", l.ttl)
		pipe.Del(ctx, key)
		_, err := pipe.Exec(ctx)
		return err
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (l *Lockout) Reset(ctx context.Context, username string) error {
	return l.client.Del(ctx, countKey(username)).Err()
}
