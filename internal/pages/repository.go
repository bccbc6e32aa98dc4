package pages

import (
	"context"

	"github.com/bissquit/pagelite/internal/domain"
)

// MutateFunc changes a loaded page in place. Returning an error aborts the
// mutation and nothing is persisted.
type MutateFunc func(page *domain.StatusPage) error

// Repository defines the interface for status page storage.
type Repository interface {
	// ListPages returns every stored page. An empty store yields an empty slice.
	ListPages(ctx context.Context) ([]domain.StatusPage, error)
	GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error)
	GetPageByEditToken(ctx context.Context, token string) (*domain.StatusPage, error)

	// CreatePage inserts a new page. Returns ErrSlugTaken or ErrEditTokenTaken on collision.
	CreatePage(ctx context.Context, page *domain.StatusPage) error

	// UpsertPage replaces the page with the same slug and stamps UpdatedAt,
	// or inserts the page as is when the slug is unknown.
	UpsertPage(ctx context.Context, page *domain.StatusPage) error

	// UpdatePage applies fn to the page identified by slug while holding an
	// exclusive lock on it, then persists the result with a fresh UpdatedAt.
	UpdatePage(ctx context.Context, slug string, fn MutateFunc) (*domain.StatusPage, error)

	Ping(ctx context.Context) error
}
