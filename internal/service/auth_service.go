package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claimdesk/claimdesk/internal/auth"
	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/logger"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
	"github.com/google/uuid"
)

// Common service errors. Unknown-username and wrong-password share one
// message on purpose: the caller must not learn which field was wrong.
var (
	ErrUserNotFound        = errors.New("invalid username or password")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrAccountDeactivated  = errors.New("account is deactivated")
	ErrUserAlreadyExists   = errors.New("username or email already exists")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrPasswordTooWeak     = errors.New("password does not meet requirements")
	ErrSamePassword        = errors.New("new password must be different from current password")
)

// AccountLockedError rejects a login attempt made while the account is
// locked; the message must state the unlock time.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// AuthService coordinates login, registration, logout, and refresh
// against the credential store, password hasher, token issuer, and
// lockout policy, emitting audit events along the way.
type AuthService struct {
	db          *database.Postgres
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	auditor     *AuditRecorder
	tokenSvc    *auth.TokenService
	lockout     auth.LockoutPolicy
	argonParams *auth.Argon2Params
	cfg         *config.Config
	log         *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	db *database.Postgres,
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	auditor *AuditRecorder,
	tokenSvc *auth.TokenService,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		db:          db,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditor:     auditor,
		tokenSvc:    tokenSvc,
		lockout:     auth.NewLockoutPolicy(cfg.Security.Lockout),
		argonParams: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("auth_service"),
	}
}

// LoginRequest contains the data for logging in
type LoginRequest struct {
	Username string
	Password string
	Client   ClientMeta
}

// LoginResponse contains the tokens and user summary from a login
type LoginResponse struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	User         model.PublicUser `json:"user"`
}

// Login authenticates a user and returns a token pair plus the
// public-safe user summary.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	now := time.Now()

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.auditor.RecordSecurityEvent(ctx, nil, &req.Username,
				model.AuditActionLoginFailed, "user not found", req.Client)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Attempts rejected purely due to lock state mutate nothing: no
	// counter increment, no audit entry.
	if user.IsLocked(now) {
		return nil, &AccountLockedError{Until: *user.LockedUntil}
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		if err := s.recordFailedAttempt(ctx, user.ID, now); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record failed login attempt")
		}
		s.auditor.RecordSecurityEvent(ctx, &user.ID, &user.Username,
			model.AuditActionLoginFailed, "invalid password", req.Client)
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokenSvc.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &model.Session{
		ID:           generateID("ses"),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
		IPAddress:    req.Client.IPAddress,
		UserAgent:    req.Client.UserAgent,
		ExpiresAt:    now.Add(s.tokenSvc.RefreshTokenTTL()),
		CreatedAt:    now,
	}

	// Session creation, counter reset, and last-login stamp commit as
	// one unit; a partially applied login must never be observable.
	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.sessionRepo.WithTx(tx).Create(ctx, session); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).RecordLogin(ctx, user.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist login: %w", err)
	}

	s.auditor.RecordSecurityEvent(ctx, &user.ID, &user.Username,
		model.AuditActionLogin, "user logged in successfully", req.Client)

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user logged in")

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// recordFailedAttempt increments the failed-attempt counter and, when
// the lockout threshold is reached, sets the lock expiry. Both writes
// run in one transaction so the counter state survives even though the
// login call itself fails.
func (s *AuthService) recordFailedAttempt(ctx context.Context, userID string, now time.Time) error {
	return s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		userRepo := s.userRepo.WithTx(tx)
		attempts, err := userRepo.IncrementFailedAttempts(ctx, userID)
		if err != nil {
			return err
		}
		if !s.lockout.ShouldLock(attempts) {
			return nil
		}
		until := s.lockout.LockUntil(now)
		if err := userRepo.LockUntil(ctx, userID, until); err != nil {
			return err
		}
		s.log.Warn().
			Str("user_id", userID).
			Int("attempts", attempts).
			Time("locked_until", until).
			Msg("account locked due to failed attempts")
		return nil
	})
}

// RegisterRequest contains the data for registering a new user
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	FullName string
	Client   ClientMeta
}

// Register creates a new user account and issues tokens immediately;
// no session row is created until the first login.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, req.Username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	passwordHash, err := auth.HashPassword(req.Password, s.argonParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Username:     req.Username,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditor.RecordSecurityEvent(ctx, &user.ID, &user.Username,
		model.AuditActionCreate, "new user registered", req.Client)

	accessToken, err := s.tokenSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokenSvc.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// Logout revokes the sessions matching (userID, refreshToken). A
// set-update: double-logout is a no-op, not an error. The audit entry
// is written whether or not a matching session existed.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string, meta ClientMeta) error {
	revoked, err := s.sessionRepo.RevokeMatching(ctx, userID, refreshToken, model.RevokedManualLogout, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	var username *string
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		username = &user.Username
	}

	s.auditor.RecordSecurityEvent(ctx, &userID, username,
		model.AuditActionLogout, "user logged out", meta)

	s.log.Info().Str("user_id", userID).Int64("sessions_revoked", revoked).Msg("user logged out")
	return nil
}

// RefreshResponse contains the rotated token pair. No user summary:
// the caller already holds it or can re-derive it from the access token.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a usable refresh token for a new token pair,
// rotating the session row in place. Missing, revoked, and expired all
// collapse into one uniform failure.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	now := time.Now()

	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !session.IsUsable(now) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefreshToken, err := s.tokenSvc.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	// Rotate-in-place: the old value is overwritten, so it joins the
	// single-use chain and can never be replayed.
	if err := s.sessionRepo.Rotate(ctx, session.ID, newRefreshToken, accessToken, now); err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// GetCurrentUser returns the verified caller's user record.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ValidateAccessToken validates an access token and returns the claims
func (s *AuthService) ValidateAccessToken(tokenString string) (*auth.AccessClaims, error) {
	return s.tokenSvc.ValidateAccessToken(tokenString)
}

// ChangePasswordRequest contains the data for changing a password
type ChangePasswordRequest struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	Client          ClientMeta
}

// ChangePassword changes an authenticated user's password and revokes
// their outstanding sessions.
func (s *AuthService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	match, err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return ErrInvalidCredentials
	}

	sameAsOld, err := auth.VerifyPassword(req.NewPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if sameAsOld {
		return ErrSamePassword
	}

	if err := auth.ValidatePassword(req.NewPassword, s.cfg.Security.Password.MinLength); err != nil {
		return fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	passwordHash, err := auth.HashPassword(req.NewPassword, s.argonParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if _, err := s.sessionRepo.RevokeAllForUser(ctx, user.ID, model.RevokedManualLogout, time.Now()); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions after password change")
	}

	s.auditor.RecordSecurityEvent(ctx, &user.ID, &user.Username,
		model.AuditActionUpdate, "password changed", req.Client)

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// AdminUnlockAccount clears a user's lockout state ahead of its expiry.
func (s *AuthService) AdminUnlockAccount(ctx context.Context, targetUserID, adminUserID string, meta ClientMeta) error {
	user, err := s.userRepo.GetByID(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.userRepo.ResetFailedAttempts(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}

	description := "account unlocked by admin"
	s.auditor.Record(ctx, &model.AuditLog{
		UserID:      &adminUserID,
		Action:      model.AuditActionUpdate,
		Entity:      "User",
		EntityID:    &targetUserID,
		Description: &description,
		IPAddress:   &meta.IPAddress,
		UserAgent:   &meta.UserAgent,
	})

	s.log.Info().Str("target_user_id", targetUserID).Str("admin_user_id", adminUserID).Msg("account unlocked by admin")
	return nil
}

// generateID returns a prefixed ID that fits varchar(32).
func generateID(prefix string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if prefix != "" {
		return prefix + "_" + id[:26]
	}
	return id
}
