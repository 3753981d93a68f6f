package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/model"
)

const sessionColumns = `id, user_id, refresh_token, access_token, ip_address, user_agent,
	       expires_at, last_used_at, revoked, revoked_at, revoked_reason, created_at`

// SessionRepository handles session persistence
type SessionRepository struct {
	db database.Executor
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.Postgres) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx returns a copy of the repository bound to an open transaction.
func (r *SessionRepository) WithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

// Create stores a new session row
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token, access_token, ip_address,
		    user_agent, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshToken,
		session.AccessToken,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByRefreshToken retrieves a session by its refresh-token value
func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = $1`
	var s model.Session
	err := r.db.QueryRowContext(ctx, query, refreshToken).Scan(
		&s.ID,
		&s.UserID,
		&s.RefreshToken,
		&s.AccessToken,
		&s.IPAddress,
		&s.UserAgent,
		&s.ExpiresAt,
		&s.LastUsedAt,
		&s.Revoked,
		&s.RevokedAt,
		&s.RevokedReason,
		&s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Rotate replaces the session's token values in place, preserving its
// identity. Used by refresh; distinct from login, which always creates
// a new row.
func (r *SessionRepository) Rotate(ctx context.Context, id, newRefreshToken, newAccessToken string, at time.Time) error {
	query := `
		UPDATE sessions
		SET refresh_token = $1, access_token = $2, last_used_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, newRefreshToken, newAccessToken, at, id)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	return requireRow(result)
}

// RevokeMatching marks all non-revoked sessions for (userID,
// refreshToken) revoked. A set-update so double-logout is a no-op, not
// an error; returns the number of sessions actually revoked.
func (r *SessionRepository) RevokeMatching(ctx context.Context, userID, refreshToken string, reason model.RevocationReason, at time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET revoked = true, revoked_at = $1, revoked_reason = $2
		WHERE user_id = $3 AND refresh_token = $4 AND revoked = false
	`
	result, err := r.db.ExecContext(ctx, query, at, reason, userID, refreshToken)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return result.RowsAffected()
}

// RevokeAllForUser marks every non-revoked session of a user revoked.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, reason model.RevocationReason, at time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET revoked = true, revoked_at = $1, revoked_reason = $2
		WHERE user_id = $3 AND revoked = false
	`
	result, err := r.db.ExecContext(ctx, query, at, reason, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes sessions whose expiry has long passed. Expiry
// is otherwise detected at read time; this exists only for cleanup jobs.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
