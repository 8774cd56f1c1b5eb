package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mtmsolution/site/internal/model"
)

const pendingProfileTTL = 7 * 24 * time.Hour

type PendingProfileStore struct {
	db *sql.DB
}

func NewPendingProfileStore(db *sql.DB) *PendingProfileStore {
	return &PendingProfileStore{db: db}
}

func scanPendingProfile(scanner interface{ Scan(...any) error }) (*model.PendingProfile, error) {
	var p model.PendingProfile
	err := scanner.Scan(&p.ID, &p.Email, &p.Name, &p.Company, &p.Phone, &p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const pendingProfileCols = `id, email, name, company, phone, created_at, updated_at, expires_at`

// NormalizeEmail lower-cases and trims an email for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Upsert stores pre-auth contact details keyed by normalized email, renewing
// the 7-day TTL. At most one row exists per email.
func (s *PendingProfileStore) Upsert(email, name, company, phone string) (*model.PendingProfile, error) {
	email = NormalizeEmail(email)
	expiresAt := time.Now().UTC().Add(pendingProfileTTL)
	_, err := s.db.Exec(
		`INSERT INTO pending_profiles (email, name, company, phone, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   name = excluded.name,
		   company = excluded.company,
		   phone = excluded.phone,
		   expires_at = excluded.expires_at,
		   updated_at = datetime('now')`,
		email, name, company, phone, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert pending profile: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+pendingProfileCols+` FROM pending_profiles WHERE email = ?`, email)
	return scanPendingProfile(row)
}

// GetValidByEmail returns the unexpired pending profile for an email, or nil.
func (s *PendingProfileStore) GetValidByEmail(email string) (*model.PendingProfile, error) {
	row := s.db.QueryRow(
		`SELECT `+pendingProfileCols+` FROM pending_profiles WHERE email = ? AND datetime(expires_at) > datetime('now')`,
		NormalizeEmail(email),
	)
	p, err := scanPendingProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending profile: %w", err)
	}
	return p, nil
}

func (s *PendingProfileStore) DeleteByEmail(email string) error {
	_, err := s.db.Exec(`DELETE FROM pending_profiles WHERE email = ?`, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("delete pending profile: %w", err)
	}
	return nil
}

func (s *PendingProfileStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM pending_profiles WHERE datetime(expires_at) <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired pending profiles: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
