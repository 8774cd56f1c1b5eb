package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mtmsolution/site/internal/model"
)

// ErrPhoneConflict is returned when a phone number is already bound to a
// lead with a different email.
var ErrPhoneConflict = errors.New("phone already bound to a different email")

type LeadStore struct {
	db *sql.DB
}

func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

func scanLead(scanner interface{ Scan(...any) error }) (*model.Lead, error) {
	var l model.Lead
	var nextActionAt sql.NullTime
	var tags string
	err := scanner.Scan(
		&l.ID, &l.SubjectID, &l.Email, &l.Name, &l.Company, &l.PhoneE164,
		&l.Provider, &l.Source, &l.CRMStatus, &l.Urgency, &l.NextActionType,
		&nextActionAt, &l.Notes, &tags, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if nextActionAt.Valid {
		l.NextActionAt = &nextActionAt.Time
	}
	if err := json.Unmarshal([]byte(tags), &l.InterestTags); err != nil {
		l.InterestTags = nil
	}
	return &l, nil
}

const leadCols = `id, subject_id, email, name, company, phone_e164, provider, source, crm_status, urgency, next_action_type, next_action_at, notes, interest_tags, created_at, updated_at`

// UpsertParams carries the funnel-facing fields of a lead. Source must be
// pre-resolved by the caller (lead.ResolveSource); the upsert overwrites it
// as given.
type UpsertParams struct {
	SubjectID string
	Email     string
	Name      string
	Company   string
	PhoneE164 string
	Provider  string
	Source    string
}

// Upsert inserts a lead or fully overwrites the funnel fields of the
// existing row for the subject id. Returns ErrPhoneConflict when the phone
// is already bound to a lead with a different email; no fields are applied
// in that case.
func (s *LeadStore) Upsert(p UpsertParams) (*model.Lead, error) {
	email := NormalizeEmail(p.Email)
	if p.PhoneE164 != "" {
		var other string
		err := s.db.QueryRow(
			`SELECT email FROM leads WHERE phone_e164 = ? AND email <> ? LIMIT 1`,
			p.PhoneE164, email,
		).Scan(&other)
		if err == nil {
			return nil, ErrPhoneConflict
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("check phone uniqueness: %w", err)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO leads (subject_id, email, name, company, phone_e164, provider, source) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   company = excluded.company,
		   phone_e164 = excluded.phone_e164,
		   provider = excluded.provider,
		   source = excluded.source,
		   updated_at = datetime('now')`,
		p.SubjectID, email, p.Name, p.Company, p.PhoneE164, p.Provider, p.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert lead: %w", err)
	}
	return s.GetBySubjectID(p.SubjectID)
}

func (s *LeadStore) GetBySubjectID(subjectID string) (*model.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadCols+` FROM leads WHERE subject_id = ?`, subjectID)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (s *LeadStore) GetByEmail(email string) (*model.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadCols+` FROM leads WHERE email = ?`, NormalizeEmail(email))
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by email: %w", err)
	}
	return l, nil
}

func (s *LeadStore) GetByID(id int64) (*model.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadCols+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by id: %w", err)
	}
	return l, nil
}

func (s *LeadStore) List() ([]*model.Lead, error) {
	rows, err := s.db.Query(`SELECT ` + leadCols + ` FROM leads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (s *LeadStore) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

// UpdateSource persists a widened source without touching other fields.
func (s *LeadStore) UpdateSource(subjectID, source string) error {
	_, err := s.db.Exec(
		`UPDATE leads SET source = ?, updated_at = datetime('now') WHERE subject_id = ?`,
		source, subjectID,
	)
	if err != nil {
		return fmt.Errorf("update lead source: %w", err)
	}
	return nil
}

// CRMUpdate carries the fields an operator may edit from the admin area.
type CRMUpdate struct {
	CRMStatus      string
	Urgency        string
	NextActionType string
	NextActionAt   *time.Time
	Notes          string
	InterestTags   []string
}

func (s *LeadStore) UpdateCRM(id int64, u CRMUpdate) error {
	tags := u.InterestTags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode interest tags: %w", err)
	}
	var nextAt sql.NullTime
	if u.NextActionAt != nil {
		nextAt = sql.NullTime{Time: *u.NextActionAt, Valid: true}
	}
	_, err = s.db.Exec(
		`UPDATE leads SET crm_status = ?, urgency = ?, next_action_type = ?, next_action_at = ?, notes = ?, interest_tags = ?, updated_at = datetime('now') WHERE id = ?`,
		u.CRMStatus, u.Urgency, u.NextActionType, nextAt, u.Notes, string(encoded), id,
	)
	if err != nil {
		return fmt.Errorf("update lead crm: %w", err)
	}
	return nil
}

// DeleteCascade removes a lead and any pending profile for the same email in
// a single transaction, so a crash cannot leave an orphaned pending row.
func (s *LeadStore) DeleteCascade(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete lead: %w", err)
	}
	defer tx.Rollback()

	var email string
	err = tx.QueryRow(`SELECT email FROM leads WHERE id = ?`, id).Scan(&email)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup lead email: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM leads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM pending_profiles WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete pending profile for lead: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete lead: %w", err)
	}
	return nil
}
