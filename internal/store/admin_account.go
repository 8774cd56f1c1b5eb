package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mtmsolution/site/internal/model"
)

// Lockout policy: 5 consecutive failed password checks lock the account for
// 15 minutes.
const (
	LockoutThreshold = 5
	LockoutDuration  = 15 * time.Minute
)

type AdminAccountStore struct {
	db *sql.DB
}

func NewAdminAccountStore(db *sql.DB) *AdminAccountStore {
	return &AdminAccountStore{db: db}
}

func scanAdminAccount(scanner interface{ Scan(...any) error }) (*model.AdminAccount, error) {
	var a model.AdminAccount
	var lockedUntil sql.NullTime
	err := scanner.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive,
		&a.FailedLoginCount, &lockedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		a.LockedUntil = &lockedUntil.Time
	}
	return &a, nil
}

const adminAccountCols = `id, username, email, password_hash, role, is_active, failed_login_count, locked_until, created_at, updated_at`

func (s *AdminAccountStore) Create(username, email, passwordHash, role string) (*model.AdminAccount, error) {
	result, err := s.db.Exec(
		`INSERT INTO admin_accounts (username, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert admin account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AdminAccountStore) GetByID(id int64) (*model.AdminAccount, error) {
	row := s.db.QueryRow(`SELECT `+adminAccountCols+` FROM admin_accounts WHERE id = ?`, id)
	a, err := scanAdminAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin account: %w", err)
	}
	return a, nil
}

func (s *AdminAccountStore) GetByUsername(username string) (*model.AdminAccount, error) {
	row := s.db.QueryRow(`SELECT `+adminAccountCols+` FROM admin_accounts WHERE username = ?`, username)
	a, err := scanAdminAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin account by username: %w", err)
	}
	return a, nil
}

func (s *AdminAccountStore) List() ([]*model.AdminAccount, error) {
	rows, err := s.db.Query(`SELECT ` + adminAccountCols + ` FROM admin_accounts ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("list admin accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.AdminAccount
	for rows.Next() {
		a, err := scanAdminAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *AdminAccountStore) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM admin_accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admin accounts: %w", err)
	}
	return n, nil
}

// RecordFailure increments the consecutive-failure counter and, when it
// reaches the lockout threshold, sets locked_until. Returns the new counter
// value and whether this failure locked the account.
func (s *AdminAccountStore) RecordFailure(id int64) (int, bool, error) {
	_, err := s.db.Exec(
		`UPDATE admin_accounts SET failed_login_count = failed_login_count + 1, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return 0, false, fmt.Errorf("record login failure: %w", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT failed_login_count FROM admin_accounts WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, false, fmt.Errorf("read failure count: %w", err)
	}

	if count < LockoutThreshold {
		return count, false, nil
	}
	lockedUntil := time.Now().UTC().Add(LockoutDuration)
	_, err = s.db.Exec(
		`UPDATE admin_accounts SET locked_until = ?, updated_at = datetime('now') WHERE id = ?`,
		lockedUntil, id,
	)
	if err != nil {
		return count, false, fmt.Errorf("lock account: %w", err)
	}
	return count, true, nil
}

// ResetFailures clears the failure counter and any lock after a successful
// login.
func (s *AdminAccountStore) ResetFailures(id int64) error {
	_, err := s.db.Exec(
		`UPDATE admin_accounts SET failed_login_count = 0, locked_until = NULL, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

func (s *AdminAccountStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE admin_accounts SET is_active = ?, updated_at = datetime('now') WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set admin account active: %w", err)
	}
	return nil
}

func (s *AdminAccountStore) UpdateRole(id int64, role string) error {
	_, err := s.db.Exec(
		`UPDATE admin_accounts SET role = ?, updated_at = datetime('now') WHERE id = ?`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("update admin role: %w", err)
	}
	return nil
}

func (s *AdminAccountStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM admin_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete admin account: %w", err)
	}
	return nil
}
