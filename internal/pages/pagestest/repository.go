// Package pagestest holds a behavioural test suite shared by every
// pages.Repository implementation.
package pagestest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewPage returns a page with one component and a resolved incident with
// three updates.
func NewPage(slug, token string) *domain.StatusPage {
	resolved := domain.Millis(1700000900000)
	return &domain.StatusPage{
		Slug:        slug,
		EditToken:   token,
		Name:        "Acme " + slug,
		Description: "public services",
		Components: []domain.Component{
			{ID: "c1", Name: "API", Type: domain.ComponentTypeAPI, Status: domain.ComponentStatusOperational},
		},
		Incidents: []domain.Incident{
			{
				ID:         "i1",
				Title:      "Elevated errors",
				Status:     domain.IncidentStatusResolved,
				Components: []string{"c1"},
				Updates: []domain.IncidentUpdate{
					{ID: "u1", Message: "investigating", Status: domain.IncidentStatusInvestigating, Timestamp: 1700000000000},
					{ID: "u2", Message: "fix deployed", Status: domain.IncidentStatusMonitoring, Timestamp: 1700000500000},
					{ID: "u3", Message: "resolved", Status: domain.IncidentStatusResolved, Timestamp: 1700000900000},
				},
				CreatedAt:  1700000000000,
				ResolvedAt: &resolved,
			},
		},
		Subscribers: []string{"ops@example.com"},
		CreatedAt:   1699999000000,
		UpdatedAt:   1699999000000,
	}
}

// RunRepositoryTests exercises repo against the pages.Repository contract.
// newRepo must return an empty repository.
func RunRepositoryTests(t *testing.T, newRepo func(t *testing.T) pages.Repository) {
	t.Run("empty store lists nothing", func(t *testing.T) {
		repo := newRepo(t)

		list, err := repo.ListPages(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("create then find by slug and token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		page := NewPage("abc123", "tok00000000000000000000001")

		require.NoError(t, repo.CreatePage(ctx, page))

		bySlug, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		if diff := cmp.Diff(page, bySlug); diff != "" {
			t.Errorf("by slug mismatch (-want +got):\n%s", diff)
		}

		byToken, err := repo.GetPageByEditToken(ctx, page.EditToken)
		require.NoError(t, err)
		if diff := cmp.Diff(bySlug, byToken); diff != "" {
			t.Errorf("by token mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown slug and token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.GetPageBySlug(ctx, "nope00")
		assert.ErrorIs(t, err, pages.ErrPageNotFound)

		_, err = repo.GetPageByEditToken(ctx, "missing")
		assert.ErrorIs(t, err, pages.ErrPageNotFound)

		_, err = repo.UpdatePage(ctx, "nope00", func(*domain.StatusPage) error { return nil })
		assert.ErrorIs(t, err, pages.ErrPageNotFound)
	})

	t.Run("create collisions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.CreatePage(ctx, NewPage("abc123", "tok00000000000000000000001")))

		err := repo.CreatePage(ctx, NewPage("abc123", "tok00000000000000000000002"))
		assert.ErrorIs(t, err, pages.ErrSlugTaken)

		err = repo.CreatePage(ctx, NewPage("def456", "tok00000000000000000000001"))
		assert.ErrorIs(t, err, pages.ErrEditTokenTaken)
	})

	t.Run("list returns every page", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		first := NewPage("aaa111", "tok00000000000000000000001")
		second := NewPage("bbb222", "tok00000000000000000000002")
		second.CreatedAt = first.CreatedAt + 1
		require.NoError(t, repo.CreatePage(ctx, second))
		require.NoError(t, repo.CreatePage(ctx, first))

		list, err := repo.ListPages(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "aaa111", list[0].Slug)
		assert.Equal(t, "bbb222", list[1].Slug)
	})

	t.Run("upsert replaces and inserts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		page := NewPage("abc123", "tok00000000000000000000001")
		require.NoError(t, repo.CreatePage(ctx, page))

		page.IsPro = true
		page.Name = "Renamed"
		require.NoError(t, repo.UpsertPage(ctx, page))

		got, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, got.IsPro)
		assert.Equal(t, "Renamed", got.Name)
		assert.Greater(t, got.UpdatedAt, domain.Millis(1699999000000))

		fresh := NewPage("new999", "tok00000000000000000000009")
		require.NoError(t, repo.UpsertPage(ctx, fresh))
		got, err = repo.GetPageByEditToken(ctx, fresh.EditToken)
		require.NoError(t, err)
		assert.Equal(t, "new999", got.Slug)
	})

	t.Run("update applies mutation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.CreatePage(ctx, NewPage("abc123", "tok00000000000000000000001")))

		updated, err := repo.UpdatePage(ctx, "abc123", func(p *domain.StatusPage) error {
			p.Components = append(p.Components, domain.Component{
				ID: "c2", Name: "Web", Type: domain.ComponentTypeWebsite, Status: domain.ComponentStatusDown,
			})
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, updated.Components, 2)
		assert.Greater(t, updated.UpdatedAt, domain.Millis(1699999000000))

		got, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		if diff := cmp.Diff(updated, got); diff != "" {
			t.Errorf("stored page mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failed update persists nothing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		page := NewPage("abc123", "tok00000000000000000000001")
		require.NoError(t, repo.CreatePage(ctx, page))

		boom := errors.New("boom")
		_, err := repo.UpdatePage(ctx, "abc123", func(p *domain.StatusPage) error {
			p.Name = "changed"
			p.Components = nil
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		if diff := cmp.Diff(page, got); diff != "" {
			t.Errorf("page changed after failed update (-want +got):\n%s", diff)
		}
	})

	t.Run("returned pages are detached", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.CreatePage(ctx, NewPage("abc123", "tok00000000000000000000001")))

		got, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		got.Components[0].Status = domain.ComponentStatusDown

		again, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, domain.ComponentStatusOperational, again.Components[0].Status)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		page := NewPage("abc123", "tok00000000000000000000001")
		page.Subscribers = []string{}
		require.NoError(t, repo.CreatePage(ctx, page))

		const writers = 10
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.UpdatePage(ctx, "abc123", func(p *domain.StatusPage) error {
					p.Subscribers = append(p.Subscribers, fmt.Sprintf("user%d@example.com", i))
					return nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := repo.GetPageBySlug(ctx, "abc123")
		require.NoError(t, err)
		assert.Len(t, got.Subscribers, writers)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(context.Background()))
	})
}
