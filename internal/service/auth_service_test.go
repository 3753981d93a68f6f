package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimdesk/claimdesk/internal/auth"
	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/logger"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		Security: config.SecurityConfig{
			Password: config.PasswordConfig{
				MinLength:         8,
				Argon2Memory:      8 * 1024,
				Argon2Iterations:  1,
				Argon2Parallelism: 1,
			},
			Tokens: config.TokenConfig{
				SigningSecret:   "test-secret-0123456789abcdef",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 7 * 24 * time.Hour,
				Issuer:          "claimdesk",
			},
			Lockout: config.LockoutConfig{
				Threshold: 5,
				Duration:  30 * time.Minute,
			},
		},
	}
}

func newTestAuthService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pg := &database.Postgres{DB: db}
	cfg := testConfig()
	log := logger.New("error", "json")

	userRepo := repository.NewUserRepository(pg)
	sessionRepo := repository.NewSessionRepository(pg)
	auditRepo := repository.NewAuditRepository(pg)
	auditor := NewAuditRecorder(auditRepo, log)

	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	require.NoError(t, err)

	return NewAuthService(pg, userRepo, sessionRepo, auditor, tokenSvc, cfg, log), mock
}

var userCols = []string{
	"id", "username", "email", "password_hash", "full_name", "role", "is_active",
	"email_verified", "failed_login_attempts", "locked_until", "last_login_at",
	"password_changed_at", "created_at", "updated_at",
}

func userRow(u *model.User) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, string(u.Role),
		u.IsActive, u.EmailVerified, u.FailedLoginAttempts, u.LockedUntil,
		u.LastLoginAt, u.PasswordChangedAt, u.CreatedAt, u.UpdatedAt,
	)
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, auth.NewParams(8*1024, 1, 1))
	require.NoError(t, err)
	return hash
}

func activeUser(t *testing.T, password string) *model.User {
	now := time.Now()
	return &model.User{
		ID:           "usr_00000000000000000000000001",
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		PasswordHash: hashFor(t, password),
		FullName:     "Jane Doe",
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "a solid passphrase")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(userRow(user))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET failed_login_attempts = 0, locked_until = NULL, last_login_at`).
		WithArgs(sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.Login(context.Background(), LoginRequest{
		Username: "jdoe",
		Password: "a solid passphrase",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	assert.Equal(t, "jdoe", resp.User.Username)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownUserAuditsFailureWithoutSubject(t *testing.T) {
	svc, mock := newTestAuthService(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), nil, "ghost", "LOGIN_FAILED", "User", nil,
			"user not found", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		Username: "ghost",
		Password: "whatever",
		Client:   ClientMeta{IPAddress: "10.0.0.1", UserAgent: "test"},
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.EqualError(t, err, "invalid username or password")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "the real password")
	user.FailedLoginAttempts = 3

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(userRow(user))
	mock.ExpectBegin()
	mock.ExpectQuery("RETURNING failed_login_attempts").
		WithArgs(user.ID).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(4))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		Username: "jdoe",
		Password: "not the real password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginFifthFailureLocksAccount(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "the real password")
	user.FailedLoginAttempts = 4

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(userRow(user))
	mock.ExpectBegin()
	mock.ExpectQuery("RETURNING failed_login_attempts").
		WithArgs(user.ID).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(5))
	mock.ExpectExec("UPDATE users SET locked_until").
		WithArgs(sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		Username: "jdoe",
		Password: "not the real password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWhileLockedMutatesNothing(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "the real password")
	until := time.Now().Add(20 * time.Minute).Truncate(time.Second)
	user.LockedUntil = &until
	user.FailedLoginAttempts = 5

	// Only the lookup runs: no counter increment, no audit entry, even
	// when the presented password is correct.
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(userRow(user))

	_, err := svc.Login(context.Background(), LoginRequest{
		Username: "jdoe",
		Password: "the real password",
	})

	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, locked.Until.Equal(until))
	assert.Contains(t, locked.Error(), "account is locked until")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginExpiredLockAllowsAttempt(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "the real password")
	past := time.Now().Add(-time.Minute)
	user.LockedUntil = &past
	user.FailedLoginAttempts = 5

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(userRow(user))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET failed_login_attempts = 0, locked_until = NULL, last_login_at`).
		WithArgs(sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.Login(context.Background(), LoginRequest{
		Username: "jdoe",
		Password: "the real password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "the real password")
	user.IsActive = false

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(userRow(user))

	_, err := svc.Login(context.Background(), LoginRequest{
		Username: "jdoe",
		Password: "the real password",
	})
	assert.ErrorIs(t, err, ErrAccountDeactivated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

var sessionCols = []string{
	"id", "user_id", "refresh_token", "access_token", "ip_address", "user_agent",
	"expires_at", "last_used_at", "revoked", "revoked_at", "revoked_reason", "created_at",
}

func sessionRow(s *model.Session) *sqlmock.Rows {
	return sqlmock.NewRows(sessionCols).AddRow(
		s.ID, s.UserID, s.RefreshToken, s.AccessToken, s.IPAddress, s.UserAgent,
		s.ExpiresAt, s.LastUsedAt, s.Revoked, s.RevokedAt, s.RevokedReason, s.CreatedAt,
	)
}

func TestRefreshRotatesSessionInPlace(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "irrelevant")
	session := &model.Session{
		ID:           "ses_00000000000000000000000001",
		UserID:       user.ID,
		RefreshToken: "old-refresh-token",
		AccessToken:  "old-access-token",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now().Add(-time.Hour),
	}

	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE refresh_token`).
		WithArgs("old-refresh-token").
		WillReturnRows(sessionRow(session))
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(user.ID).
		WillReturnRows(userRow(user))
	mock.ExpectExec("SET refresh_token").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), session.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.Refresh(context.Background(), "old-refresh-token")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, "old-refresh-token", resp.RefreshToken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshFailuresAreUniform(t *testing.T) {
	reason := model.RevokedManualLogout

	tests := []struct {
		name    string
		session *model.Session
	}{
		{"unknown token", nil},
		{
			"revoked session",
			&model.Session{
				ID: "ses_1", UserID: "usr_1", RefreshToken: "tok",
				ExpiresAt: time.Now().Add(time.Hour),
				Revoked:   true, RevokedReason: &reason,
				CreatedAt: time.Now(),
			},
		},
		{
			"expired session",
			&model.Session{
				ID: "ses_1", UserID: "usr_1", RefreshToken: "tok",
				ExpiresAt: time.Now().Add(-time.Minute),
				CreatedAt: time.Now().Add(-time.Hour),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestAuthService(t)

			expect := mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE refresh_token`).
				WithArgs("tok")
			if tt.session == nil {
				expect.WillReturnError(sql.ErrNoRows)
			} else {
				expect.WillReturnRows(sessionRow(tt.session))
			}

			_, err := svc.Refresh(context.Background(), "tok")
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
			assert.EqualError(t, err, "invalid or expired refresh token")

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReplayedRefreshTokenRejected(t *testing.T) {
	// After rotation the old value no longer matches any session row,
	// so replaying it hits the unknown-token path.
	svc, mock := newTestAuthService(t)

	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE refresh_token`).
		WithArgs("already-rotated").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Refresh(context.Background(), "already-rotated")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "irrelevant")

	// No session matches; logout still succeeds and still audits.
	mock.ExpectExec("SET revoked = true").
		WithArgs(sqlmock.AnyArg(), "manual_logout", user.ID, "unknown-token").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(user.ID).
		WillReturnRows(userRow(user))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Logout(context.Background(), user.ID, "unknown-token", ClientMeta{})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateRejected(t *testing.T) {
	svc, mock := newTestAuthService(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("jdoe", "jdoe@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "jdoe",
		Email:    "JDoe@Example.com",
		Password: "a solid passphrase",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCreatesNoSession(t *testing.T) {
	svc, mock := newTestAuthService(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("jdoe", "jdoe@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Username: "jdoe",
		Email:    " JDoe@Example.com ",
		Password: "a solid passphrase",
		FullName: "Jane Doe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "jdoe@example.com", resp.User.Email)
	assert.Equal(t, model.RoleUser, resp.User.Role)

	// ExpectationsWereMet failing on an INSERT INTO sessions would mean
	// registration opened a session; it must not.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterWeakPasswordRejected(t *testing.T) {
	svc, mock := newTestAuthService(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("jdoe", "jdoe@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrPasswordTooWeak)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "current password")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(user.ID).
		WillReturnRows(userRow(user))

	err := svc.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          user.ID,
		CurrentPassword: "wrong guess",
		NewPassword:     "a brand new passphrase",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "current password")

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(user.ID).
		WillReturnRows(userRow(user))
	mock.ExpectExec("SET password_hash").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET revoked = true").
		WithArgs(sqlmock.AnyArg(), "manual_logout", user.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          user.ID,
		CurrentPassword: "current password",
		NewPassword:     "a brand new passphrase",
	})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUnlockAccount(t *testing.T) {
	svc, mock := newTestAuthService(t)
	user := activeUser(t, "irrelevant")
	until := time.Now().Add(25 * time.Minute)
	user.LockedUntil = &until
	user.FailedLoginAttempts = 5

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(user.ID).
		WillReturnRows(userRow(user))
	mock.ExpectExec("failed_login_attempts = 0, locked_until = NULL WHERE id").
		WithArgs(user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.AdminUnlockAccount(context.Background(), user.ID, "usr_admin", ClientMeta{})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
