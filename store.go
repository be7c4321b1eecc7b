package spacetraveling

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// StoredPage is a generated page persisted between restarts.
type StoredPage struct {
	Slug        string
	Props       Props
	GeneratedAt time.Time
}

// Store wraps a SQLite database holding the latest props of every generated page.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets page reads proceed while a regeneration writes.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    slug TEXT PRIMARY KEY,
    props TEXT NOT NULL,
    generated_at INTEGER NOT NULL
);
`)
	return err
}

// SavePage upserts the props generated for slug.
func (s *Store) SavePage(p StoredPage) error {
	b, err := json.Marshal(p.Props)
	if err != nil {
		return fmt.Errorf("spacetraveling: encode props %q: %w", p.Slug, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO pages (slug, props, generated_at) VALUES (?, ?, ?)`,
		p.Slug, string(b), p.GeneratedAt.UnixMilli())
	return err
}

// GetPage returns the stored page for slug, or ErrNotFound.
func (s *Store) GetPage(slug string) (StoredPage, error) {
	var props string
	var generated int64
	err := s.db.QueryRow(`SELECT props, generated_at FROM pages WHERE slug = ?`, slug).Scan(&props, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredPage{}, fmt.Errorf("spacetraveling: stored page %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return StoredPage{}, err
	}
	return decodePage(slug, props, generated)
}

// ListPages returns every stored page ordered by slug.
func (s *Store) ListPages() ([]StoredPage, error) {
	rows, err := s.db.Query(`SELECT slug, props, generated_at FROM pages ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []StoredPage
	for rows.Next() {
		var slug, props string
		var generated int64
		if err := rows.Scan(&slug, &props, &generated); err != nil {
			return nil, err
		}
		p, err := decodePage(slug, props, generated)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes the stored page for slug. Deleting a missing page is not an error.
func (s *Store) DeletePage(slug string) error {
	_, err := s.db.Exec(`DELETE FROM pages WHERE slug = ?`, slug)
	return err
}

func decodePage(slug, props string, generated int64) (StoredPage, error) {
	p := StoredPage{Slug: slug, GeneratedAt: time.UnixMilli(generated)}
	if err := json.Unmarshal([]byte(props), &p.Props); err != nil {
		return StoredPage{}, fmt.Errorf("spacetraveling: decode props %q: %w", slug, err)
	}
	return p, nil
}
