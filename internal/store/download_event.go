package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type DownloadEventStore struct {
	db *sql.DB
}

func NewDownloadEventStore(db *sql.DB) *DownloadEventStore {
	return &DownloadEventStore{db: db}
}

// Record logs a gated download. subjectID is best-effort and may be empty.
func (s *DownloadEventStore) Record(materialID int64, subjectID string) error {
	_, err := s.db.Exec(
		`INSERT INTO download_events (id, material_id, subject_id) VALUES (?, ?, ?)`,
		uuid.NewString(), materialID, subjectID,
	)
	if err != nil {
		return fmt.Errorf("insert download event: %w", err)
	}
	return nil
}

func (s *DownloadEventStore) CountByMaterial(materialID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM download_events WHERE material_id = ?`, materialID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count download events: %w", err)
	}
	return n, nil
}
