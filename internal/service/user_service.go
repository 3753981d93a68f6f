package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claimdesk/claimdesk/internal/auth"
	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/logger"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
)

// ErrInvalidRole rejects a role outside the enum.
var ErrInvalidRole = errors.New("invalid role")

// UserService handles administrative user management. Deactivation is
// the normal delete path; HardDelete is the explicit administrative
// removal.
type UserService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	auditor     *AuditRecorder
	argonParams *auth.Argon2Params
	cfg         *config.Config
	log         *logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	auditor *AuditRecorder,
	cfg *config.Config,
	log *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditor:     auditor,
		argonParams: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("user_service"),
	}
}

// List returns all users
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.List(ctx)
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// CreateUserRequest contains the data for an admin-created user
type CreateUserRequest struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     model.Role
}

// Create creates a user with an admin-specified role.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

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
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created by admin")
	return user, nil
}

// UpdateUserRequest contains the administratively mutable fields. Nil
// pointers leave the current value untouched.
type UpdateUserRequest struct {
	Email    *string
	FullName *string
	Role     *model.Role
	IsActive *bool
}

// Update applies an administrative update to a user
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, ErrInvalidRole
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	// A deactivated user keeps no usable sessions; their outstanding
	// tokens die with them.
	if req.IsActive != nil && !*req.IsActive {
		if _, err := s.sessionRepo.RevokeAllForUser(ctx, user.ID, model.RevokedByAdmin, time.Now()); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions on deactivation")
		}
	}

	return user, nil
}

// Deactivate marks a user deleted (soft delete) and revokes their sessions.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if _, err := s.sessionRepo.RevokeAllForUser(ctx, id, model.RevokedByAdmin, time.Now()); err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("failed to revoke sessions on deactivation")
	}
	s.log.Info().Str("user_id", id).Msg("user deactivated")
	return nil
}

// HardDelete physically removes a user. Explicit administrative path.
func (s *UserService) HardDelete(ctx context.Context, id string) error {
	if _, err := s.sessionRepo.RevokeAllForUser(ctx, id, model.RevokedByAdmin, time.Now()); err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("failed to revoke sessions before hard delete")
	}
	if err := s.userRepo.HardDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user hard deleted")
	return nil
}
