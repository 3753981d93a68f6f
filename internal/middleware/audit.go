package middleware

import (
	"net/http"
	"strings"

	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/service"
)

// auditActions maps HTTP verbs to their recorded action.
var auditActions = map[string]model.AuditAction{
	http.MethodPost:   model.AuditActionCreate,
	http.MethodGet:    model.AuditActionRead,
	http.MethodPut:    model.AuditActionUpdate,
	http.MethodPatch:  model.AuditActionUpdate,
	http.MethodDelete: model.AuditActionDelete,
}

// Audit records an audit entry for each completed request on the
// wrapped routes, keyed off the HTTP verb. Entries are written only
// for 2xx responses so rejected requests do not pollute the trail.
// Must run after Auth.
func (m *Middleware) Audit(recorder *service.AuditRecorder, entity string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			action, ok := auditActions[r.Method]
			if !ok || wrapped.statusCode < 200 || wrapped.statusCode >= 300 {
				return
			}
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/restore") {
				action = model.AuditActionRestore
			}

			entry := &model.AuditLog{
				Action: action,
				Entity: entity,
			}
			if user, ok := GetUser(r.Context()); ok {
				entry.UserID = &user.ID
				entry.Username = &user.Username
			}
			if id := r.PathValue("id"); id != "" {
				entry.EntityID = &id
			}
			description := r.Method + " " + r.URL.Path
			entry.Description = &description
			if ip := IPKey(r); ip != "" {
				entry.IPAddress = &ip
			}
			if ua := r.UserAgent(); ua != "" {
				entry.UserAgent = &ua
			}

			recorder.Record(r.Context(), entry)
		})
	}
}
