package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/model"
)

// AuditRepository handles audit log persistence. Entries are
// append-only: there is no update or delete path.
type AuditRepository struct {
	db database.Executor
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *database.Postgres) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO audit_logs (id, user_id, username, action, entity, entity_id,
		    description, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Username,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.Description,
		entry.IPAddress,
		entry.UserAgent,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// List returns recent entries, newest first. An empty userID returns
// entries for all subjects.
func (r *AuditRepository) List(ctx context.Context, userID string, limit, offset int) ([]*model.AuditLog, error) {
	query := `
		SELECT id, user_id, username, action, entity, entity_id, description,
		       ip_address, user_agent, metadata, created_at
		FROM audit_logs
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		var metadataJSON []byte
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Username,
			&e.Action,
			&e.Entity,
			&e.EntityID,
			&e.Description,
			&e.IPAddress,
			&e.UserAgent,
			&metadataJSON,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(metadataJSON) > 0 {
			json.Unmarshal(metadataJSON, &e.Metadata)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
