package model

import "time"

// AuditAction enumerates recordable security and data events.
type AuditAction string

const (
	AuditActionLogin       AuditAction = "LOGIN"
	AuditActionLoginFailed AuditAction = "LOGIN_FAILED"
	AuditActionLogout      AuditAction = "LOGOUT"
	AuditActionCreate      AuditAction = "CREATE"
	AuditActionRead        AuditAction = "READ"
	AuditActionUpdate      AuditAction = "UPDATE"
	AuditActionDelete      AuditAction = "DELETE"
	AuditActionRestore     AuditAction = "RESTORE"
)

// AuditLog represents an append-only audit log entry.
// UserID and Username are absent when the subject is unknown,
// e.g. a failed login against a non-existent username.
type AuditLog struct {
	ID          string                 `json:"id"`
	UserID      *string                `json:"userId,omitempty"`
	Username    *string                `json:"username,omitempty"`
	Action      AuditAction            `json:"action"`
	Entity      string                 `json:"entity"`
	EntityID    *string                `json:"entityId,omitempty"`
	Description *string                `json:"description,omitempty"`
	IPAddress   *string                `json:"ipAddress,omitempty"`
	UserAgent   *string                `json:"userAgent,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
