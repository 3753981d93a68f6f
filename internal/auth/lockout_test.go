package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/claimdesk/claimdesk/internal/config"
)

func TestLockoutThreshold(t *testing.T) {
	policy := NewLockoutPolicy(config.LockoutConfig{
		Threshold: 5,
		Duration:  30 * time.Minute,
	})

	for attempts := 0; attempts < 5; attempts++ {
		assert.False(t, policy.ShouldLock(attempts), "attempts=%d", attempts)
	}
	assert.True(t, policy.ShouldLock(5))
	assert.True(t, policy.ShouldLock(6))
}

func TestLockUntil(t *testing.T) {
	policy := NewLockoutPolicy(config.LockoutConfig{
		Threshold: 5,
		Duration:  30 * time.Minute,
	})

	fifthFailure := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fifthFailure.Add(30*time.Minute), policy.LockUntil(fifthFailure))
}
