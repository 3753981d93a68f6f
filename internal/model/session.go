package model

import (
	"time"
)

// RevocationReason records why a session stopped being usable.
type RevocationReason string

const (
	RevokedManualLogout RevocationReason = "manual_logout"
	RevokedRotated      RevocationReason = "rotated"
	RevokedExpired      RevocationReason = "expired"
	RevokedByAdmin      RevocationReason = "admin_revoked"
)

// Session represents one outstanding refresh-token grant.
// A session is usable iff it is not revoked and has not expired;
// expiry is detected at read time, never swept.
type Session struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	RefreshToken  string            `json:"-"`
	AccessToken   string            `json:"-"`
	IPAddress     string            `json:"ipAddress"`
	UserAgent     string            `json:"userAgent"`
	ExpiresAt     time.Time         `json:"expiresAt"`
	LastUsedAt    *time.Time        `json:"lastUsedAt,omitempty"`
	Revoked       bool              `json:"revoked"`
	RevokedAt     *time.Time        `json:"revokedAt,omitempty"`
	RevokedReason *RevocationReason `json:"revokedReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// IsExpired checks if the session has passed its expiry at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsUsable checks if the session can still mint tokens.
func (s *Session) IsUsable(now time.Time) bool {
	return !s.Revoked && !s.IsExpired(now)
}
