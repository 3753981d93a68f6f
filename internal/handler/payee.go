package handler

import (
	"errors"
	"net/http"

	"github.com/claimdesk/claimdesk/internal/middleware"
	"github.com/claimdesk/claimdesk/internal/repository"
	"github.com/claimdesk/claimdesk/internal/service"
)

// ListPayees returns all non-deleted claim payees
func (h *Handler) ListPayees(w http.ResponseWriter, r *http.Request) {
	payees, err := h.payeeSvc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list claim payees")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list claim payees")
		return
	}
	writeJSON(w, http.StatusOK, payees)
}

// GetPayee returns one claim payee with its payment accounts and addresses
func (h *Handler) GetPayee(w http.ResponseWriter, r *http.Request) {
	payee, err := h.payeeSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writePayeeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payee)
}

// CreatePayee creates a claim payee with nested payment accounts and addresses
func (h *Handler) CreatePayee(w http.ResponseWriter, r *http.Request) {
	var req service.PayeeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	payee, err := h.payeeSvc.Create(r.Context(), req, middleware.GetUserID(r.Context()))
	if err != nil {
		h.writePayeeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, payee)
}

// UpdatePayee updates a claim payee, upserting any nested children
func (h *Handler) UpdatePayee(w http.ResponseWriter, r *http.Request) {
	var req service.PayeeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	payee, err := h.payeeSvc.Update(r.Context(), r.PathValue("id"), req, middleware.GetUserID(r.Context()))
	if err != nil {
		h.writePayeeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payee)
}

// DeletePayee soft-deletes a claim payee
func (h *Handler) DeletePayee(w http.ResponseWriter, r *http.Request) {
	err := h.payeeSvc.Delete(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writePayeeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Claim payee deleted"})
}

// RestorePayee recovers a soft-deleted claim payee
func (h *Handler) RestorePayee(w http.ResponseWriter, r *http.Request) {
	payee, err := h.payeeSvc.Restore(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writePayeeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payee)
}

func (h *Handler) writePayeeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Claim payee not found")
	case errors.Is(err, service.ErrPayeeNotDeleted):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.Error().Err(err).Msg("claim payee request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
