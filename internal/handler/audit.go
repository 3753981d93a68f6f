package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// ListAuditLogs returns audit entries, newest first. Supports optional
// userId filtering and limit/offset paging.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultAuditPageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditPageSize)
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	logs, err := h.auditRepo.List(r.Context(), q.Get("userId"), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list audit logs")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  logs,
		"limit":  limit,
		"offset": offset,
	})
}
