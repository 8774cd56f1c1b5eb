package store

import (
	"database/sql"
	"fmt"

	"github.com/mtmsolution/site/internal/model"
)

type MaterialStore struct {
	db *sql.DB
}

func NewMaterialStore(db *sql.DB) *MaterialStore {
	return &MaterialStore{db: db}
}

func scanMaterial(scanner interface{ Scan(...any) error }) (*model.Material, error) {
	var m model.Material
	var publishAt sql.NullTime
	err := scanner.Scan(&m.ID, &m.Title, &m.Description, &m.StoragePath, &m.Published, &publishAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if publishAt.Valid {
		m.PublishAt = &publishAt.Time
	}
	return &m, nil
}

const materialCols = `id, title, description, storage_path, published, publish_at, created_at, updated_at`

// visibleCond gates materials to those explicitly published or whose
// scheduled publish time has elapsed. It is evaluated on every query, never
// cached.
const visibleCond = `(published = 1 OR (publish_at IS NOT NULL AND datetime(publish_at) <= datetime('now')))`

func (s *MaterialStore) Create(title, description, storagePath string, published bool, publishAt sql.NullTime) (*model.Material, error) {
	result, err := s.db.Exec(
		`INSERT INTO materials (title, description, storage_path, published, publish_at) VALUES (?, ?, ?, ?, ?)`,
		title, description, storagePath, published, publishAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert material: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MaterialStore) GetByID(id int64) (*model.Material, error) {
	row := s.db.QueryRow(`SELECT `+materialCols+` FROM materials WHERE id = ?`, id)
	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

// GetVisibleByID returns the material only if it is downloadable right now.
func (s *MaterialStore) GetVisibleByID(id int64) (*model.Material, error) {
	row := s.db.QueryRow(`SELECT `+materialCols+` FROM materials WHERE id = ? AND `+visibleCond, id)
	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visible material: %w", err)
	}
	return m, nil
}

func (s *MaterialStore) ListVisible() ([]*model.Material, error) {
	return s.list(`SELECT ` + materialCols + ` FROM materials WHERE ` + visibleCond + ` ORDER BY created_at DESC`)
}

func (s *MaterialStore) List() ([]*model.Material, error) {
	return s.list(`SELECT ` + materialCols + ` FROM materials ORDER BY created_at DESC`)
}

func (s *MaterialStore) list(query string) ([]*model.Material, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []*model.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (s *MaterialStore) Update(id int64, title, description, storagePath string, published bool, publishAt sql.NullTime) error {
	_, err := s.db.Exec(
		`UPDATE materials SET title = ?, description = ?, storage_path = ?, published = ?, publish_at = ?, updated_at = datetime('now') WHERE id = ?`,
		title, description, storagePath, published, publishAt, id,
	)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

func (s *MaterialStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM materials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}
