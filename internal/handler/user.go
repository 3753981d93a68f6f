package handler

import (
	"errors"
	"net/http"

	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
	"github.com/claimdesk/claimdesk/internal/service"
)

// ListUsers returns all active users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list users")
		return
	}

	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

// GetUser returns a single user by ID
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// CreateUser creates a user with an admin-assigned role
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username, email, password, and role are required")
		return
	}

	user, err := h.userSvc.Create(r.Context(), service.CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		h.writeUserError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

type updateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// UpdateUser applies an administrative update to a user
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	update := service.UpdateUserRequest{
		Email:    req.Email,
		FullName: req.FullName,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		update.Role = &role
	}

	user, err := h.userSvc.Update(r.Context(), r.PathValue("id"), update)
	if err != nil {
		h.writeUserError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// DeactivateUser soft-deletes a user and revokes their sessions
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userSvc.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		h.writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deactivated"})
}

// DeleteUser physically removes a user record
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userSvc.HardDelete(r.Context(), r.PathValue("id")); err != nil {
		h.writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (h *Handler) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrPasswordTooWeak),
		errors.Is(err, service.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.Error().Err(err).Msg("user request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
