package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// AuditLogStore is write-only from the application's perspective; rows are
// read by operators directly, never by the site.
type AuditLogStore struct {
	db *sql.DB
}

func NewAuditLogStore(db *sql.DB) *AuditLogStore {
	return &AuditLogStore{db: db}
}

// Write appends an audit row. actorID is nil for pre-auth events such as
// failed logins. Callers treat failures as best-effort: log and continue.
func (s *AuditLogStore) Write(actorID *int64, action, entityType, entityID string, metadata map[string]string) error {
	encoded := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		encoded = string(b)
	}
	var actor sql.NullInt64
	if actorID != nil {
		actor = sql.NullInt64{Int64: *actorID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO audit_log (actor_admin_id, action, entity_type, entity_id, metadata) VALUES (?, ?, ?, ?, ?)`,
		actor, action, entityType, entityID, encoded,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
