// Package limiters implements the brute-force defenses backed by the
// shared cache: the windowed failed-login counter and the account lockout
// flag.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shepherdcrm/authcore/cache"
)

// LoginConfig tunes the progressive lockout. The counter window and the
// lockout duration are deliberately independent: once set, a lockout
// outlives the counter that triggered it.
type LoginConfig struct {
	Threshold       int           // failures within the window that trigger lockout
	Window          time.Duration // failed-login counter TTL
	LockoutDuration time.Duration // lockout flag TTL
}

// DefaultLoginConfig returns the production policy: five failures within
// fifteen minutes lock the account for thirty.
func DefaultLoginConfig() LoginConfig {
	return LoginConfig{
		Threshold:       5,
		Window:          15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
	}
}

// LoginLimiter tracks failed logins per email and locks user accounts at
// the threshold. Counters use the cache's atomic increment; two concurrent
// failures can never both observe a pre-threshold count.
type LoginLimiter struct {
	cache  cache.Cache
	config LoginConfig
	now    func() time.Time
}

// NewLoginLimiter wires a limiter over the shared cache.
func NewLoginLimiter(c cache.Cache, cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{cache: c, config: cfg, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (l *LoginLimiter) WithClock(now func() time.Time) *LoginLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *LoginLimiter) counterKey(email string) string {
	bucket := l.now().Unix() / int64(l.config.Window.Seconds())
	return fmt.Sprintf("failed:%s:%d", strings.ToLower(email), bucket)
}

func lockKey(userID string) string { return "lockout:" + userID }

// RecordFailure increments the failure counter for the email and, when the
// post-increment count reaches the threshold and the user is known, sets
// the lockout flag. Returns whether the account is now locked. Both writes
// complete before returning so a fast retry cannot slip past the lockout.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, userID string) (bool, error) {
	key := l.counterKey(email)
	count, err := l.cache.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if count == 1 {
		// First failure in the window owns the TTL.
		if err := l.cache.Expire(ctx, key, l.config.Window); err != nil {
			return false, err
		}
	}

	if count < int64(l.config.Threshold) || userID == "" {
		return false, nil
	}

	if err := l.cache.Set(ctx, lockKey(userID), "1", l.config.LockoutDuration); err != nil {
		return false, err
	}
	return true, nil
}

// IsLocked reports whether the lockout flag is present for the user.
// A cache error propagates so the login flow can fail closed.
func (l *LoginLimiter) IsLocked(ctx context.Context, userID string) (bool, error) {
	_, err := l.cache.Get(ctx, lockKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reset clears the current failure window for the email after a successful
// login. It does not clear an active lockout flag.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.cache.Del(ctx, l.counterKey(email))
}

// Failures returns the current count in the active window. Missing keys
// read as zero and do not reveal whether the email exists.
func (l *LoginLimiter) Failures(ctx context.Context, email string) (int, error) {
	val, err := l.cache.Get(ctx, l.counterKey(email))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, err
	}
	var count int
	if _, err := fmt.Sscanf(val, "%d", &count); err != nil {
		return 0, nil
	}
	return count, nil
}
