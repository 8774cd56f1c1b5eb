package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mtmsolution/site/internal/model"
)

// Lead event types.
const (
	LeadEventCreated       = "created"
	LeadEventUpdated       = "updated"
	LeadEventStatusChanged = "status_changed"
)

type LeadEventStore struct {
	db *sql.DB
}

func NewLeadEventStore(db *sql.DB) *LeadEventStore {
	return &LeadEventStore{db: db}
}

// Record appends an audit row for a lead mutation. Rows are never updated or
// deleted independently of their lead.
func (s *LeadEventStore) Record(leadID int64, eventType string, meta model.LeadEventMeta) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode lead event metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO lead_events (lead_id, event_type, metadata) VALUES (?, ?, ?)`,
		leadID, eventType, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("insert lead event: %w", err)
	}
	return nil
}

func (s *LeadEventStore) ListByLead(leadID int64) ([]*model.LeadEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, lead_id, event_type, metadata, created_at FROM lead_events WHERE lead_id = ? ORDER BY created_at ASC, id ASC`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lead events: %w", err)
	}
	defer rows.Close()

	var events []*model.LeadEvent
	for rows.Next() {
		var e model.LeadEvent
		var meta string
		if err := rows.Scan(&e.ID, &e.LeadID, &e.EventType, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead event: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			e.Metadata = model.LeadEventMeta{}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
