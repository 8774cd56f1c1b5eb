package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mtmsolution/site/internal/model"
)

const adminSessionTTL = 7 * 24 * time.Hour

type AdminSessionStore struct {
	db *sql.DB
}

func NewAdminSessionStore(db *sql.DB) *AdminSessionStore {
	return &AdminSessionStore{db: db}
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create generates a new session with a crypto-random bearer secret and a
// separate CSRF token, expiring in 7 days. Only a hash of the secret is
// stored; the returned secret is the cookie value.
func (s *AdminSessionStore) Create(adminID int64) (secret string, sess *model.AdminSession, err error) {
	secret, err = randomToken()
	if err != nil {
		return "", nil, err
	}
	csrfToken, err := randomToken()
	if err != nil {
		return "", nil, err
	}
	expiresAt := time.Now().UTC().Add(adminSessionTTL)

	result, err := s.db.Exec(
		`INSERT INTO admin_sessions (session_hash, csrf_token, admin_id, expires_at) VALUES (?, ?, ?, ?)`,
		hashSecret(secret), csrfToken, adminID, expiresAt,
	)
	if err != nil {
		return "", nil, fmt.Errorf("insert admin session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(
		`SELECT id, session_hash, csrf_token, admin_id, expires_at, created_at FROM admin_sessions WHERE id = ?`, id,
	)
	sess = &model.AdminSession{}
	if err := row.Scan(&sess.ID, &sess.SessionHash, &sess.CSRFToken, &sess.AdminID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return "", nil, fmt.Errorf("read admin session: %w", err)
	}
	return secret, sess, nil
}

// GetBySecret returns the unexpired session for a raw cookie secret joined
// with its account, or nils when missing or expired. Expired rows are
// filtered, not purged; DeleteExpired handles cleanup.
func (s *AdminSessionStore) GetBySecret(secret string) (*model.AdminSession, *model.AdminAccount, error) {
	row := s.db.QueryRow(
		`SELECT s.id, s.session_hash, s.csrf_token, s.admin_id, s.expires_at, s.created_at,
		        a.id, a.username, a.email, a.password_hash, a.role, a.is_active, a.failed_login_count, a.locked_until, a.created_at, a.updated_at
		 FROM admin_sessions s
		 JOIN admin_accounts a ON a.id = s.admin_id
		 WHERE s.session_hash = ? AND datetime(s.expires_at) > datetime('now')`,
		hashSecret(secret),
	)
	var sess model.AdminSession
	var acct model.AdminAccount
	var lockedUntil sql.NullTime
	err := row.Scan(
		&sess.ID, &sess.SessionHash, &sess.CSRFToken, &sess.AdminID, &sess.ExpiresAt, &sess.CreatedAt,
		&acct.ID, &acct.Username, &acct.Email, &acct.PasswordHash, &acct.Role, &acct.IsActive,
		&acct.FailedLoginCount, &lockedUntil, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get admin session: %w", err)
	}
	if lockedUntil.Valid {
		acct.LockedUntil = &lockedUntil.Time
	}
	return &sess, &acct, nil
}

func (s *AdminSessionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM admin_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

func (s *AdminSessionStore) DeleteByAdminID(adminID int64) error {
	_, err := s.db.Exec(`DELETE FROM admin_sessions WHERE admin_id = ?`, adminID)
	if err != nil {
		return fmt.Errorf("delete admin sessions by account: %w", err)
	}
	return nil
}

func (s *AdminSessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM admin_sessions WHERE datetime(expires_at) <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired admin sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
