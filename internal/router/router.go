package router

import (
	"net/http"
	"time"

	"github.com/claimdesk/claimdesk/internal/auth"
	"github.com/claimdesk/claimdesk/internal/handler"
	"github.com/claimdesk/claimdesk/internal/middleware"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
	"github.com/claimdesk/claimdesk/internal/service"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, tokenSvc *auth.TokenService, userRepo *repository.UserRepository, auditor *service.AuditRecorder) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ClaimDesk API v1","version":"0.1.0"}`))
	})

	// Public authentication routes (rate limited)
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	registerRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  3,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	refreshRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /api/v1/auth/register", registerRateLimit(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/v1/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/v1/auth/refresh", refreshRateLimit(http.HandlerFunc(h.Refresh)))

	// Protected routes (require auth)
	authMw := mw.Auth(tokenSvc, userRepo)

	mux.Handle("POST /api/v1/auth/logout", authMw(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/v1/auth/password/change", authMw(http.HandlerFunc(h.ChangePassword)))
	mux.Handle("GET /api/v1/auth/me", authMw(http.HandlerFunc(h.Me)))

	// Admin user management
	adminOnly := mw.RequireRole(model.RoleSuperAdmin, model.RoleAdmin)
	superAdminOnly := mw.RequireRole(model.RoleSuperAdmin)
	userAudit := mw.Audit(auditor, "User")

	mux.Handle("GET /api/v1/users", authMw(adminOnly(http.HandlerFunc(h.ListUsers))))
	mux.Handle("GET /api/v1/users/{id}", authMw(adminOnly(http.HandlerFunc(h.GetUser))))
	mux.Handle("POST /api/v1/users", authMw(adminOnly(userAudit(http.HandlerFunc(h.CreateUser)))))
	mux.Handle("PATCH /api/v1/users/{id}", authMw(adminOnly(userAudit(http.HandlerFunc(h.UpdateUser)))))
	mux.Handle("DELETE /api/v1/users/{id}", authMw(adminOnly(userAudit(http.HandlerFunc(h.DeactivateUser)))))
	mux.Handle("DELETE /api/v1/users/{id}/purge", authMw(superAdminOnly(userAudit(http.HandlerFunc(h.DeleteUser)))))
	mux.Handle("POST /api/v1/users/{id}/unlock", authMw(adminOnly(http.HandlerFunc(h.UnlockUser))))

	// Claim payee records: readable by all authenticated staff roles,
	// writable by managers and above. Writes go through the audit trail.
	staff := mw.RequireRole(model.RoleSuperAdmin, model.RoleAdmin, model.RoleManager, model.RoleUser, model.RoleViewer)
	payeeWriters := mw.RequireRole(model.RoleSuperAdmin, model.RoleAdmin, model.RoleManager)
	payeeAudit := mw.Audit(auditor, "ClaimPayee")

	mux.Handle("GET /api/v1/payees", authMw(staff(http.HandlerFunc(h.ListPayees))))
	mux.Handle("GET /api/v1/payees/{id}", authMw(staff(http.HandlerFunc(h.GetPayee))))
	mux.Handle("POST /api/v1/payees", authMw(payeeWriters(payeeAudit(http.HandlerFunc(h.CreatePayee)))))
	mux.Handle("PUT /api/v1/payees/{id}", authMw(payeeWriters(payeeAudit(http.HandlerFunc(h.UpdatePayee)))))
	mux.Handle("DELETE /api/v1/payees/{id}", authMw(payeeWriters(payeeAudit(http.HandlerFunc(h.DeletePayee)))))
	mux.Handle("POST /api/v1/payees/{id}/restore", authMw(payeeWriters(payeeAudit(http.HandlerFunc(h.RestorePayee)))))

	// Audit log access is admin-only
	mux.Handle("GET /api/v1/audit-logs", authMw(adminOnly(http.HandlerFunc(h.ListAuditLogs))))

	// Global middleware chain
	var root http.Handler = mux
	root = mw.Logger(root)
	root = mw.RequestID(root)
	root = mw.Recover(root)

	return root
}
