// Package sqlite provides a single-file pages.Repository backed by SQLite.
// Each page is stored as one JSON document next to its indexed slug and
// edit token.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pages"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS status_pages (
	slug       TEXT PRIMARY KEY,
	edit_token TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	document   TEXT NOT NULL
);
`

// Repository implements pages.Repository on a SQLite database file.
type Repository struct {
	db  *sql.DB
	now func() domain.Millis
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers, which UpdatePage relies on.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	return &Repository{db: db, now: domain.Now}, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// ListPages returns all pages ordered by creation time.
func (r *Repository) ListPages(ctx context.Context) ([]domain.StatusPage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM status_pages ORDER BY created_at, slug`)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]domain.StatusPage, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		page, err := decode(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return result, nil
}

// GetPageBySlug returns the page with the given slug.
func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error) {
	return r.getPage(ctx, r.db, `SELECT document FROM status_pages WHERE slug = ?`, slug)
}

// GetPageByEditToken returns the page owning token.
func (r *Repository) GetPageByEditToken(ctx context.Context, token string) (*domain.StatusPage, error) {
	return r.getPage(ctx, r.db, `SELECT document FROM status_pages WHERE edit_token = ?`, token)
}

// CreatePage inserts a new page.
func (r *Repository) CreatePage(ctx context.Context, page *domain.StatusPage) error {
	doc, err := encode(page)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO status_pages (slug, edit_token, created_at, document) VALUES (?, ?, ?, ?)`,
		page.Slug, page.EditToken, int64(page.CreatedAt), doc,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

// UpsertPage replaces or inserts the page keyed by its slug.
func (r *Repository) UpsertPage(ctx context.Context, page *domain.StatusPage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM status_pages WHERE slug = ?`, page.Slug).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check page: %w", err)
	}

	stored := page.Clone()
	if exists > 0 {
		stored.UpdatedAt = r.now()
	}
	doc, err := encode(stored)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_pages (slug, edit_token, created_at, document) VALUES (?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			edit_token = excluded.edit_token,
			created_at = excluded.created_at,
			document   = excluded.document
	`, stored.Slug, stored.EditToken, int64(stored.CreatedAt), doc)
	if err != nil {
		return mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	page.UpdatedAt = stored.UpdatedAt
	return nil
}

// UpdatePage loads, mutates and rewrites the page in one transaction.
func (r *Repository) UpdatePage(ctx context.Context, slug string, fn pages.MutateFunc) (*domain.StatusPage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	page, err := r.getPage(ctx, tx, `SELECT document FROM status_pages WHERE slug = ?`, slug)
	if err != nil {
		return nil, err
	}
	token := page.EditToken

	if err := fn(page); err != nil {
		return nil, err
	}
	page.Slug = slug
	page.EditToken = token
	page.UpdatedAt = r.now()

	doc, err := encode(page)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE status_pages SET document = ? WHERE slug = ?`, doc, slug); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return page, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) getPage(ctx context.Context, q querier, query string, arg string) (*domain.StatusPage, error) {
	var doc string
	err := q.QueryRowContext(ctx, query, arg).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pages.ErrPageNotFound
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return decode(doc)
}

func encode(page *domain.StatusPage) (string, error) {
	data, err := json.Marshal(page)
	if err != nil {
		return "", fmt.Errorf("encode page: %w", err)
	}
	return string(data), nil
}

func decode(doc string) (*domain.StatusPage, error) {
	var page domain.StatusPage
	if err := json.Unmarshal([]byte(doc), &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}

func mapConstraintError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: status_pages.slug"):
		return pages.ErrSlugTaken
	case strings.Contains(msg, "UNIQUE constraint failed: status_pages.edit_token"):
		return pages.ErrEditTokenTaken
	}
	return fmt.Errorf("write page: %w", err)
}
