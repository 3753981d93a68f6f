package auth

import (
	"time"

	"github.com/claimdesk/claimdesk/internal/config"
)

// LockoutPolicy is the pure decision function for brute-force lockout.
// An account locks once the failed-attempt count reaches Threshold; the
// lock lasts Duration from the triggering failure. Attempts rejected
// purely due to lock state do not increment the counter, so a lockout
// is never extended by retries made while locked.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// NewLockoutPolicy builds a policy from configuration.
func NewLockoutPolicy(cfg config.LockoutConfig) LockoutPolicy {
	return LockoutPolicy{
		Threshold: cfg.Threshold,
		Duration:  cfg.Duration,
	}
}

// ShouldLock reports whether the given failed-attempt count triggers a lock.
func (p LockoutPolicy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.Threshold
}

// LockUntil returns the unlock time for a lock triggered at now.
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.Duration)
}
