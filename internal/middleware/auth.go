package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/claimdesk/claimdesk/internal/auth"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
)

// Context keys for authenticated user data
const (
	UserKey   contextKey = "user"
	UserIDKey contextKey = "user_id"
)

// Auth creates an authentication middleware that validates access
// tokens and loads the current user. The user is re-fetched on every
// request so deactivated or deleted accounts lose access immediately,
// even while their tokens are still within their lifetime.
func (m *Middleware) Auth(tokenSvc *auth.TokenService, userRepo *repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				http.Error(w, `{"error":"unauthorized","message":"Authentication required"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tokenSvc.ValidateAccessToken(tokenString)
			if err != nil {
				m.log.Debug().Err(err).Msg("token validation failed")
				http.Error(w, `{"error":"unauthorized","message":"Invalid or expired access token"}`, http.StatusUnauthorized)
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.Subject)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					m.log.Error().Err(err).Str("user_id", claims.Subject).Msg("failed to load user for token")
				}
				http.Error(w, `{"error":"unauthorized","message":"Invalid or expired access token"}`, http.StatusUnauthorized)
				return
			}
			if !user.IsActive {
				http.Error(w, `{"error":"unauthorized","message":"Account is deactivated"}`, http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserKey, user)
			ctx = context.WithValue(ctx, UserIDKey, user.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the authenticated user from context
func GetUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok
}

// GetUserID retrieves the authenticated user's ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
