// Package postgres provides PostgreSQL implementation of the pages repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// querier is an interface for database operations that both *pgxpool.Pool and pgx.Tx implement.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements pages.Repository using PostgreSQL.
type Repository struct {
	db  *pgxpool.Pool
	now func() domain.Millis
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, now: domain.Now}
}

const selectPage = `
	SELECT slug, edit_token, name, description, is_pro, created_at, updated_at
	FROM status_pages
`

// ListPages retrieves all pages ordered by creation time.
func (r *Repository) ListPages(ctx context.Context) ([]domain.StatusPage, error) {
	rows, err := r.db.Query(ctx, selectPage+` ORDER BY created_at, slug`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	result := make([]domain.StatusPage, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		result = append(result, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	rows.Close()

	for i := range result {
		if err := loadChildren(ctx, r.db, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetPageBySlug retrieves a page by its slug.
func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error) {
	return getPage(ctx, r.db, selectPage+` WHERE slug = $1`, slug)
}

// GetPageByEditToken retrieves the page owning token.
func (r *Repository) GetPageByEditToken(ctx context.Context, token string) (*domain.StatusPage, error) {
	return getPage(ctx, r.db, selectPage+` WHERE edit_token = $1`, token)
}

// CreatePage inserts a page with all its children.
func (r *Repository) CreatePage(ctx context.Context, page *domain.StatusPage) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO status_pages (slug, edit_token, name, description, is_pro, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, query,
			page.Slug,
			page.EditToken,
			page.Name,
			page.Description,
			page.IsPro,
			page.CreatedAt,
			page.UpdatedAt,
		)
		if err != nil {
			return mapConstraintError(err)
		}
		return writeChildren(ctx, tx, page)
	})
}

// UpsertPage replaces the page with the same slug or inserts it.
func (r *Repository) UpsertPage(ctx context.Context, page *domain.StatusPage) error {
	updatedAt := page.UpdatedAt
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM status_pages WHERE slug = $1)`, page.Slug).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check page: %w", err)
		}

		if exists {
			updatedAt = r.now()
			if err := updatePageRow(ctx, tx, page, updatedAt); err != nil {
				return err
			}
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO status_pages (slug, edit_token, name, description, is_pro, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, page.Slug, page.EditToken, page.Name, page.Description, page.IsPro, page.CreatedAt, page.UpdatedAt)
			if err != nil {
				return mapConstraintError(err)
			}
		}
		return writeChildren(ctx, tx, page)
	})
	if err != nil {
		return err
	}
	page.UpdatedAt = updatedAt
	return nil
}

// UpdatePage locks the page row, applies fn and rewrites the page.
func (r *Repository) UpdatePage(ctx context.Context, slug string, fn pages.MutateFunc) (*domain.StatusPage, error) {
	var result *domain.StatusPage
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		page, err := getPage(ctx, tx, selectPage+` WHERE slug = $1 FOR UPDATE`, slug)
		if err != nil {
			return err
		}
		token := page.EditToken

		if err := fn(page); err != nil {
			return err
		}
		page.Slug = slug
		page.EditToken = token
		page.UpdatedAt = r.now()

		if err := updatePageRow(ctx, tx, page, page.UpdatedAt); err != nil {
			return err
		}
		if err := writeChildren(ctx, tx, page); err != nil {
			return err
		}
		result = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanPage(row pgx.Row) (*domain.StatusPage, error) {
	var page domain.StatusPage
	err := row.Scan(
		&page.Slug,
		&page.EditToken,
		&page.Name,
		&page.Description,
		&page.IsPro,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func getPage(ctx context.Context, q querier, query string, arg string) (*domain.StatusPage, error) {
	page, err := scanPage(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pages.ErrPageNotFound
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	if err := loadChildren(ctx, q, page); err != nil {
		return nil, err
	}
	return page, nil
}

func updatePageRow(ctx context.Context, q querier, page *domain.StatusPage, updatedAt domain.Millis) error {
	query := `
		UPDATE status_pages
		SET edit_token = $2, name = $3, description = $4, is_pro = $5, created_at = $6, updated_at = $7
		WHERE slug = $1
	`
	_, err := q.Exec(ctx, query,
		page.Slug,
		page.EditToken,
		page.Name,
		page.Description,
		page.IsPro,
		page.CreatedAt,
		updatedAt,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func loadChildren(ctx context.Context, q querier, page *domain.StatusPage) error {
	components, err := loadComponents(ctx, q, page.Slug)
	if err != nil {
		return err
	}
	incidents, err := loadIncidents(ctx, q, page.Slug)
	if err != nil {
		return err
	}
	subscribers, err := loadSubscribers(ctx, q, page.Slug)
	if err != nil {
		return err
	}

	page.Components = components
	page.Incidents = incidents
	page.Subscribers = subscribers
	return nil
}

func loadComponents(ctx context.Context, q querier, slug string) ([]domain.Component, error) {
	query := `
		SELECT id, name, type, status, description
		FROM page_components
		WHERE page_slug = $1
		ORDER BY position
	`
	rows, err := q.Query(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	defer rows.Close()

	components := make([]domain.Component, 0)
	for rows.Next() {
		var c domain.Component
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.Description); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return components, nil
}

func loadIncidents(ctx context.Context, q querier, slug string) ([]domain.Incident, error) {
	query := `
		SELECT id, title, status, component_ids, created_at, resolved_at
		FROM page_incidents
		WHERE page_slug = $1
		ORDER BY position
	`
	rows, err := q.Query(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("load incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0)
	for rows.Next() {
		var inc domain.Incident
		err := rows.Scan(&inc.ID, &inc.Title, &inc.Status, &inc.Components, &inc.CreatedAt, &inc.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		if inc.Components == nil {
			inc.Components = make([]string, 0)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	rows.Close()

	updates, err := loadUpdates(ctx, q, slug)
	if err != nil {
		return nil, err
	}
	for i := range incidents {
		incidents[i].Updates = updates[incidents[i].ID]
		if incidents[i].Updates == nil {
			incidents[i].Updates = make([]domain.IncidentUpdate, 0)
		}
	}
	return incidents, nil
}

func loadUpdates(ctx context.Context, q querier, slug string) (map[string][]domain.IncidentUpdate, error) {
	query := `
		SELECT incident_id, id, message, status, created_at
		FROM incident_updates
		WHERE page_slug = $1
		ORDER BY incident_id, position
	`
	rows, err := q.Query(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("load incident updates: %w", err)
	}
	defer rows.Close()

	updates := make(map[string][]domain.IncidentUpdate)
	for rows.Next() {
		var incidentID string
		var u domain.IncidentUpdate
		if err := rows.Scan(&incidentID, &u.ID, &u.Message, &u.Status, &u.Timestamp); err != nil {
			return nil, fmt.Errorf("scan incident update: %w", err)
		}
		updates[incidentID] = append(updates[incidentID], u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident updates: %w", err)
	}
	return updates, nil
}

func loadSubscribers(ctx context.Context, q querier, slug string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT email FROM page_subscribers WHERE page_slug = $1 ORDER BY position`, slug)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	defer rows.Close()

	subscribers := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subscribers, nil
}

// writeChildren replaces the components, incidents, updates and subscribers of page.
func writeChildren(ctx context.Context, tx pgx.Tx, page *domain.StatusPage) error {
	for _, table := range []string{"page_components", "page_incidents", "page_subscribers"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE page_slug = $1`, page.Slug); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	for i, c := range page.Components {
		batch.Queue(`
			INSERT INTO page_components (page_slug, id, position, name, type, status, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, page.Slug, c.ID, i, c.Name, c.Type, c.Status, c.Description)
	}
	for i, inc := range page.Incidents {
		componentIDs := inc.Components
		if componentIDs == nil {
			componentIDs = []string{}
		}
		batch.Queue(`
			INSERT INTO page_incidents (page_slug, id, position, title, status, component_ids, created_at, resolved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, page.Slug, inc.ID, i, inc.Title, inc.Status, componentIDs, inc.CreatedAt, inc.ResolvedAt)
		for j, u := range inc.Updates {
			batch.Queue(`
				INSERT INTO incident_updates (page_slug, incident_id, id, position, message, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, page.Slug, inc.ID, u.ID, j, u.Message, u.Status, u.Timestamp)
		}
	}
	for i, email := range page.Subscribers {
		batch.Queue(`
			INSERT INTO page_subscribers (page_slug, email, position)
			VALUES ($1, $2, $3)
		`, page.Slug, email, i)
	}

	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write page children: %w", err)
	}
	return nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "status_pages_pkey":
			return pages.ErrSlugTaken
		case "status_pages_edit_token_key":
			return pages.ErrEditTokenTaken
		}
	}
	return fmt.Errorf("write page: %w", err)
}
