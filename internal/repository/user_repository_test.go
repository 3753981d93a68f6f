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

func newMockUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(&database.Postgres{DB: db}), mock
}

func mockUserRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "full_name", "role", "is_active",
		"email_verified", "failed_login_attempts", "locked_until", "last_login_at",
		"password_changed_at", "created_at", "updated_at",
	}).AddRow(
		"usr_1", "jdoe", "jdoe@example.com", "$argon2id$...", "Jane Doe", "ADMIN",
		true, false, 0, nil, nil, nil, now, now,
	)
}

func TestGetByUsername(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery(`FROM users WHERE username`).
		WithArgs("jdoe").
		WillReturnRows(mockUserRow())

	user, err := repo.GetByUsername(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", user.ID)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Nil(t, user.LockedUntil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsernameNotFound(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery(`FROM users WHERE username`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExistsByUsernameOrEmail(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("jdoe", "other@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByUsernameOrEmail(context.Background(), "jdoe", "other@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIncrementFailedAttempts(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery("RETURNING failed_login_attempts").
		WithArgs("usr_1").
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(3))

	attempts, err := repo.IncrementFailedAttempts(context.Background(), "usr_1")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRecordLoginClearsLockState(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	at := time.Now()

	mock.ExpectExec(`SET failed_login_attempts = 0, locked_until = NULL, last_login_at`).
		WithArgs(at, "usr_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordLogin(context.Background(), "usr_1", at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingUser(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.User{ID: "usr_ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSoftDeleteMissingUser(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectExec("UPDATE users SET deleted_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "usr_ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
