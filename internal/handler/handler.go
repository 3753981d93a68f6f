package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/logger"
	"github.com/claimdesk/claimdesk/internal/repository"
	"github.com/claimdesk/claimdesk/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	db        *database.Postgres
	rdb       *database.Redis
	log       *logger.Logger
	cfg       *config.Config
	authSvc   *service.AuthService
	userSvc   *service.UserService
	payeeSvc  *service.PayeeService
	auditRepo *repository.AuditRepository
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, userSvc *service.UserService, payeeSvc *service.PayeeService, auditRepo *repository.AuditRepository) *Handler {
	return &Handler{
		db:        db,
		rdb:       rdb,
		log:       log,
		cfg:       cfg,
		authSvc:   authSvc,
		userSvc:   userSvc,
		payeeSvc:  payeeSvc,
		auditRepo: auditRepo,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func clientMeta(r *http.Request) service.ClientMeta {
	return service.ClientMeta{
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
