package store

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/mtmsolution/site/internal/model"
)

type PostStore struct {
	db *sql.DB
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func scanPost(scanner interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.Tags,
		&p.Category, &p.ReadTime, &p.ImageURL, &p.VideoURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const postCols = `id, title, slug, excerpt, content, tags, category, read_time, image_url, video_url, created_at, updated_at`

// Slugify lower-cases, strips accents, and collapses non-alphanumerics to
// hyphens.
func Slugify(text string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.Is(unicode.Mn, r):
			// combining accent, drop
		default:
			if folded := foldAccent(r); folded != 0 {
				b.WriteRune(folded)
				lastHyphen = false
			} else if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func foldAccent(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ã', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'õ', 'ö':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	default:
		return 0
	}
}

// EnsureUniqueSlug derives a slug from the requested slug or title and
// suffixes a counter until it is free.
func (s *PostStore) EnsureUniqueSlug(title, requested string, excludeID int64) (string, error) {
	base := Slugify(requested)
	if base == "" {
		base = Slugify(title)
	}
	if base == "" {
		base = "post"
	}
	slug := base
	for counter := 2; ; counter++ {
		var one int
		err := s.db.QueryRow(`SELECT 1 FROM posts WHERE slug = ? AND id <> ? LIMIT 1`, slug, excludeID).Scan(&one)
		if err == sql.ErrNoRows {
			return slug, nil
		}
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

func (s *PostStore) Create(p *model.Post) (*model.Post, error) {
	slug, err := s.EnsureUniqueSlug(p.Title, p.Slug, 0)
	if err != nil {
		return nil, err
	}
	result, err := s.db.Exec(
		`INSERT INTO posts (title, slug, excerpt, content, tags, category, read_time, image_url, video_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, slug, p.Excerpt, p.Content, p.Tags, p.Category, p.ReadTime, p.ImageURL, p.VideoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PostStore) GetByID(id int64) (*model.Post, error) {
	row := s.db.QueryRow(`SELECT `+postCols+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostStore) GetBySlug(slug string) (*model.Post, error) {
	row := s.db.QueryRow(`SELECT `+postCols+` FROM posts WHERE slug = ?`, slug)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post by slug: %w", err)
	}
	return p, nil
}

func (s *PostStore) List() ([]*model.Post, error) {
	rows, err := s.db.Query(`SELECT ` + postCols + ` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostStore) Update(p *model.Post) error {
	_, err := s.db.Exec(
		`UPDATE posts SET title = ?, slug = ?, excerpt = ?, content = ?, tags = ?, category = ?, read_time = ?, image_url = ?, video_url = ?, updated_at = datetime('now') WHERE id = ?`,
		p.Title, p.Slug, p.Excerpt, p.Content, p.Tags, p.Category, p.ReadTime, p.ImageURL, p.VideoURL, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

func (s *PostStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
