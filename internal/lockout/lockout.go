// Package lockout throttles repeated wrong share passwords per token and
// client address.
package lockout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the failure envelope for one key.
type State struct {
	FailedCount int
	LockedUntil *time.Time
}

// Locked reports whether the key is blocked at now.
func (s State) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// Store keeps short-lived failure counters.
type Store interface {
	Get(ctx context.Context, key string) (State, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (State, error)
	Clear(ctx context.Context, key string) error
}

// Limiter applies a threshold and window on top of a Store. A nil Limiter
// or a non-positive threshold disables limiting.
type Limiter struct {
	store     Store
	threshold int
	window    time.Duration
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewLimiter(store Store, threshold int, window time.Duration, logger logrus.FieldLogger) *Limiter {
	return &Limiter{
		store:     store,
		threshold: threshold,
		window:    window,
		logger:    logger,
		now:       time.Now,
	}
}

// Key derives the counter key; the raw token never reaches the store.
func Key(token, clientIP string) string {
	sum := sha256.Sum256([]byte(token + "|" + clientIP))
	return hex.EncodeToString(sum[:])
}

func (l *Limiter) enabled() bool {
	return l != nil && l.threshold > 0
}

// Allowed reports whether another password attempt may be made for key.
func (l *Limiter) Allowed(ctx context.Context, key string) (bool, error) {
	if !l.enabled() {
		return true, nil
	}
	state, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return !state.Locked(l.now()), nil
}

// Fail records a wrong password for key.
func (l *Limiter) Fail(ctx context.Context, key string) error {
	if !l.enabled() {
		return nil
	}
	state, err := l.store.RecordFailure(ctx, key, l.now(), l.threshold, l.window)
	if err != nil {
		return err
	}
	if state.FailedCount == l.threshold {
		l.logger.WithField("failed_count", state.FailedCount).Warn("share password lockout triggered")
	}
	return nil
}

// Reset clears the counter after a correct password.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.enabled() {
		return nil
	}
	return l.store.Clear(ctx, key)
}
