package store

import (
	"database/sql"
	"fmt"

	"github.com/mtmsolution/site/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var name, company, phone sql.NullString
	err := scanner.Scan(&p.SubjectID, &p.Email, &name, &company, &phone, &p.Provider, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if name.Valid {
		p.Name = &name.String
	}
	if company.Valid {
		p.Company = &company.String
	}
	if phone.Valid {
		p.Phone = &phone.String
	}
	return &p, nil
}

const profileCols = `subject_id, email, name, company, phone, provider, is_active, created_at, updated_at`

// nullable maps "" to NULL so the COALESCE merge in Merge never replaces an
// existing value with an empty one.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Merge inserts a profile or, on conflict by subject id, fills in incoming
// non-null fields while keeping existing non-null values that the incoming
// payload leaves empty.
func (s *ProfileStore) Merge(subjectID, email, name, company, phone, provider string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`INSERT INTO profiles (subject_id, email, name, company, phone, provider) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id) DO UPDATE SET
		   email = excluded.email,
		   name = COALESCE(excluded.name, profiles.name),
		   company = COALESCE(excluded.company, profiles.company),
		   phone = COALESCE(excluded.phone, profiles.phone),
		   provider = excluded.provider,
		   updated_at = datetime('now')`,
		subjectID, NormalizeEmail(email), nullable(name), nullable(company), nullable(phone), provider,
	)
	if err != nil {
		return nil, fmt.Errorf("merge profile: %w", err)
	}
	return s.GetBySubjectID(subjectID)
}

func (s *ProfileStore) GetBySubjectID(subjectID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE subject_id = ?`, subjectID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByEmail(email string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE email = ?`, NormalizeEmail(email))
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}

// SetActive flips the soft-delete flag.
func (s *ProfileStore) SetActive(subjectID string, active bool) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET is_active = ?, updated_at = datetime('now') WHERE subject_id = ?`,
		active, subjectID,
	)
	if err != nil {
		return fmt.Errorf("set profile active: %w", err)
	}
	return nil
}
