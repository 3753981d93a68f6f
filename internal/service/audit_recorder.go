package service

import (
	"context"
	"time"

	"github.com/claimdesk/claimdesk/internal/logger"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
)

// ClientMeta carries the request metadata recorded on sessions and
// audit entries.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// AuditRecorder records security events with its own error boundary:
// a failed write is logged locally and swallowed, so it can never
// affect the caller's result or roll back the primary transaction.
type AuditRecorder struct {
	repo *repository.AuditRepository
	log  *logger.Logger
}

// NewAuditRecorder creates a new AuditRecorder
func NewAuditRecorder(repo *repository.AuditRepository, log *logger.Logger) *AuditRecorder {
	return &AuditRecorder{
		repo: repo,
		log:  log.WithComponent("audit"),
	}
}

// Record persists an audit entry, best-effort. Missing ID and
// timestamp are filled in.
func (a *AuditRecorder) Record(ctx context.Context, entry *model.AuditLog) {
	if entry.ID == "" {
		entry.ID = generateID("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := a.repo.Create(ctx, entry); err != nil {
		a.log.Error().Err(err).Str("action", string(entry.Action)).Msg("failed to create audit log")
	}
}

// RecordSecurityEvent builds and records an auth-subsystem entry. The
// subject pointers stay nil when the subject is unknown, e.g. a failed
// login against a non-existent username.
func (a *AuditRecorder) RecordSecurityEvent(ctx context.Context, userID, username *string, action model.AuditAction, description string, meta ClientMeta) {
	entry := &model.AuditLog{
		UserID:   userID,
		Username: username,
		Action:   action,
		Entity:   "User",
	}
	if description != "" {
		entry.Description = &description
	}
	if meta.IPAddress != "" {
		entry.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		entry.UserAgent = &meta.UserAgent
	}
	a.Record(ctx, entry)
}
