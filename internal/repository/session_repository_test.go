package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/model"
)

func newMockSessionRepo(t *testing.T) (*SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(&database.Postgres{DB: db}), mock
}

func TestGetByRefreshToken(t *testing.T) {
	repo, mock := newMockSessionRepo(t)
	now := time.Now()

	mock.ExpectQuery(`FROM sessions WHERE refresh_token`).
		WithArgs("tok-123").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "refresh_token", "access_token", "ip_address", "user_agent",
			"expires_at", "last_used_at", "revoked", "revoked_at", "revoked_reason", "created_at",
		}).AddRow(
			"ses_1", "usr_1", "tok-123", "acc-123", "10.0.0.1", "test-agent",
			now.Add(time.Hour), nil, false, nil, nil, now,
		))

	session, err := repo.GetByRefreshToken(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "ses_1", session.ID)
	assert.True(t, session.IsUsable(now))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByRefreshTokenNotFound(t *testing.T) {
	repo, mock := newMockSessionRepo(t)

	mock.ExpectQuery(`FROM sessions WHERE refresh_token`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByRefreshToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateMissingSession(t *testing.T) {
	repo, mock := newMockSessionRepo(t)

	mock.ExpectExec("SET refresh_token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Rotate(context.Background(), "ses_ghost", "new-refresh", "new-access", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeMatchingReturnsAffectedCount(t *testing.T) {
	repo, mock := newMockSessionRepo(t)
	at := time.Now()

	mock.ExpectExec("SET revoked = true").
		WithArgs(at, "manual_logout", "usr_1", "tok-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	revoked, err := repo.RevokeMatching(context.Background(), "usr_1", "tok-123", model.RevokedManualLogout, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)
}

func TestRevokeMatchingNoMatchIsNotAnError(t *testing.T) {
	repo, mock := newMockSessionRepo(t)

	mock.ExpectExec("SET revoked = true").
		WillReturnResult(sqlmock.NewResult(0, 0))

	revoked, err := repo.RevokeMatching(context.Background(), "usr_1", "already-revoked", model.RevokedManualLogout, time.Now())
	require.NoError(t, err)
	assert.Zero(t, revoked)
}
