// Package memory provides an in-process implementation of pages.Repository.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pages"
)

// Repository keeps pages in maps guarded by a single RWMutex. Stored pages
// are deep copies, so callers never share memory with the store.
type Repository struct {
	mu      sync.RWMutex
	bySlug  map[string]*domain.StatusPage
	byToken map[string]string
	now     func() domain.Millis
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		bySlug:  make(map[string]*domain.StatusPage),
		byToken: make(map[string]string),
		now:     domain.Now,
	}
}

// ListPages returns copies of all pages ordered by creation time.
func (r *Repository) ListPages(_ context.Context) ([]domain.StatusPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.StatusPage, 0, len(r.bySlug))
	for _, p := range r.bySlug {
		result = append(result, *p.Clone())
	}
	slices.SortFunc(result, func(a, b domain.StatusPage) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return result, nil
}

// GetPageBySlug returns a copy of the page with the given slug.
func (r *Repository) GetPageBySlug(_ context.Context, slug string) (*domain.StatusPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.bySlug[slug]
	if !ok {
		return nil, pages.ErrPageNotFound
	}
	return p.Clone(), nil
}

// GetPageByEditToken returns a copy of the page owning token.
func (r *Repository) GetPageByEditToken(_ context.Context, token string) (*domain.StatusPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slug, ok := r.byToken[token]
	if !ok {
		return nil, pages.ErrPageNotFound
	}
	return r.bySlug[slug].Clone(), nil
}

// CreatePage inserts a new page.
func (r *Repository) CreatePage(_ context.Context, page *domain.StatusPage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySlug[page.Slug]; ok {
		return pages.ErrSlugTaken
	}
	if _, ok := r.byToken[page.EditToken]; ok {
		return pages.ErrEditTokenTaken
	}

	r.bySlug[page.Slug] = page.Clone()
	r.byToken[page.EditToken] = page.Slug
	return nil
}

// UpsertPage replaces or inserts the page keyed by its slug.
func (r *Repository) UpsertPage(_ context.Context, page *domain.StatusPage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byToken[page.EditToken]; ok && owner != page.Slug {
		return pages.ErrEditTokenTaken
	}

	stored := page.Clone()
	if existing, ok := r.bySlug[page.Slug]; ok {
		delete(r.byToken, existing.EditToken)
		stored.UpdatedAt = r.now()
	}

	r.bySlug[stored.Slug] = stored
	r.byToken[stored.EditToken] = stored.Slug
	page.UpdatedAt = stored.UpdatedAt
	return nil
}

// UpdatePage mutates a working copy of the page and swaps it in on success.
func (r *Repository) UpdatePage(_ context.Context, slug string, fn pages.MutateFunc) (*domain.StatusPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bySlug[slug]
	if !ok {
		return nil, pages.ErrPageNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.Slug = current.Slug
	working.EditToken = current.EditToken
	working.UpdatedAt = r.now()

	r.bySlug[slug] = working
	return working.Clone(), nil
}

// Ping always succeeds.
func (r *Repository) Ping(_ context.Context) error {
	return nil
}
