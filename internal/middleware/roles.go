package middleware

import (
	"net/http"

	"github.com/claimdesk/claimdesk/internal/model"
)

// RequireRole restricts a route to users holding one of the allowed
// roles. It must run after Auth; a request with no user in context is
// rejected rather than passed through.
func (m *Middleware) RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized","message":"Authentication required"}`, http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				m.log.Warn().
					Str("user_id", user.ID).
					Str("role", string(user.Role)).
					Str("path", r.URL.Path).
					Msg("insufficient role for route")
				http.Error(w, `{"error":"forbidden","message":"Insufficient permissions"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
