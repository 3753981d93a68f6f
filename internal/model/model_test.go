package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIsLocked(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	u := &User{}
	assert.False(t, u.IsLocked(now), "no lock set")

	u.LockedUntil = &future
	assert.True(t, u.IsLocked(now), "lock in the future")

	u.LockedUntil = &past
	assert.False(t, u.IsLocked(now), "lock already expired")

	// Exactly at the boundary the lock no longer holds.
	u.LockedUntil = &now
	assert.False(t, u.IsLocked(now))
}

func TestSessionIsUsable(t *testing.T) {
	now := time.Now()

	s := &Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.IsUsable(now))

	s.Revoked = true
	assert.False(t, s.IsUsable(now), "revoked session")

	s = &Session{ExpiresAt: now.Add(-time.Second)}
	assert.False(t, s.IsUsable(now), "expired session")

	s = &Session{ExpiresAt: now}
	assert.False(t, s.IsUsable(now), "expiry boundary is exclusive")
}

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser, RoleViewer} {
		assert.True(t, role.Valid(), string(role))
	}
	assert.False(t, Role("ROOT").Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("admin").Valid(), "roles are case sensitive")
}

func TestUserJSONHidesCredentialFields(t *testing.T) {
	until := time.Now().Add(time.Hour)
	u := &User{
		ID:                  "usr_1",
		Username:            "jdoe",
		PasswordHash:        "$argon2id$secret",
		FailedLoginAttempts: 3,
		LockedUntil:         &until,
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.NotContains(t, out, "passwordHash")
	assert.NotContains(t, string(data), "argon2id")
	assert.NotContains(t, out, "failedLoginAttempts")
	assert.NotContains(t, out, "lockedUntil")
}

func TestSessionJSONHidesTokens(t *testing.T) {
	s := &Session{
		ID:           "ses_1",
		RefreshToken: "refresh-secret",
		AccessToken:  "access-secret",
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "refresh-secret")
	assert.NotContains(t, string(data), "access-secret")
}
