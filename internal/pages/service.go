// Package pages provides the status page store contract, aggregate logic,
// business service and HTTP handlers.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pkg/sanitize"
)

const maxCreateAttempts = 5

// errUnchanged aborts a mutation that would not alter the page, so nothing is
// written and updated_at keeps its value.
var errUnchanged = errors.New("page unchanged")

// IncidentNotifier is informed about incident changes after they are stored.
type IncidentNotifier interface {
	OnIncidentReported(ctx context.Context, page *domain.StatusPage, incident *domain.Incident) error
	OnIncidentUpdated(ctx context.Context, page *domain.StatusPage, incident *domain.Incident, update *domain.IncidentUpdate) error
}

// UnsubscribeVerifier validates signed unsubscribe tokens.
type UnsubscribeVerifier interface {
	Verify(token string) (slug, email string, err error)
}

// Config contains page service settings.
type Config struct {
	ComponentLimit int
}

// Service implements status page business logic.
type Service struct {
	repo         Repository
	notifier     IncidentNotifier
	unsubscribes UnsubscribeVerifier
	config       Config

	newID        func() string
	now          func() domain.Millis
	newSlug      func() (string, error)
	newEditToken func() (string, error)
}

// NewService creates a new page service. notifier and unsubscribes may be nil.
func NewService(repo Repository, notifier IncidentNotifier, unsubscribes UnsubscribeVerifier, config Config) *Service {
	if config.ComponentLimit <= 0 {
		config.ComponentLimit = DefaultComponentLimit
	}
	return &Service{
		repo:         repo,
		notifier:     notifier,
		unsubscribes: unsubscribes,
		config:       config,
		newID:        newEntityID,
		now:          domain.Now,
		newSlug:      generateSlug,
		newEditToken: generateEditToken,
	}
}

// ComponentLimit returns the number of components allowed on free pages.
func (s *Service) ComponentLimit() int {
	return s.config.ComponentLimit
}

// CreatePageInput holds data for creating a page.
type CreatePageInput struct {
	Name        string
	Description string
}

// CreatePage creates and stores a new page with a fresh slug and edit token.
// Identifier collisions are retried with new values.
func (s *Service) CreatePage(ctx context.Context, input CreatePageInput) (*domain.StatusPage, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		slug, err := s.newSlug()
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}
		token, err := s.newEditToken()
		if err != nil {
			return nil, fmt.Errorf("generate edit token: %w", err)
		}

		now := s.now()
		page := &domain.StatusPage{
			Slug:        slug,
			EditToken:   token,
			Name:        name,
			Description: sanitize.Text(input.Description),
			Components:  make([]domain.Component, 0),
			Incidents:   make([]domain.Incident, 0),
			Subscribers: make([]string, 0),
			CreatedAt:   now,
			UpdatedAt:   now,
			IsPro:       false,
		}

		err = s.repo.CreatePage(ctx, page)
		if err == nil {
			pagesCreated.Inc()
			return page, nil
		}
		if !errors.Is(err, ErrSlugTaken) && !errors.Is(err, ErrEditTokenTaken) {
			return nil, fmt.Errorf("create page: %w", err)
		}

		createCollisions.Inc()
		slog.Warn("page identifier collision, retrying", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("create page after %d attempts: %w", maxCreateAttempts, ErrSlugTaken)
}

// GetPublicPage returns the read-only view of the page with the given slug.
func (s *Service) GetPublicPage(ctx context.Context, slug string) (*PublicPage, error) {
	page, err := s.repo.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return NewPublicPage(page), nil
}

// GetPage returns the full stored page, including the edit token and
// subscribers. Callers must have resolved the edit token first.
func (s *Service) GetPage(ctx context.Context, slug string) (*domain.StatusPage, error) {
	return s.repo.GetPageBySlug(ctx, slug)
}

// ResolveEditToken maps an edit token to the slug of its page.
func (s *Service) ResolveEditToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidEditToken
	}
	page, err := s.repo.GetPageByEditToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			return "", ErrInvalidEditToken
		}
		return "", err
	}
	return page.Slug, nil
}

// AddComponent adds a component to the page.
func (s *Service) AddComponent(ctx context.Context, slug string, draft ComponentDraft) (*domain.Component, error) {
	draft.Name = sanitize.Text(draft.Name)
	draft.Description = sanitize.Text(draft.Description)

	var added domain.Component
	_, err := s.mutate(ctx, slug, "add_component", func(page *domain.StatusPage) error {
		c, err := AddComponent(page, draft, s.config.ComponentLimit, s.newID)
		if err != nil {
			return err
		}
		added = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateComponentStatus changes the status of one component.
func (s *Service) UpdateComponentStatus(ctx context.Context, slug, componentID string, status domain.ComponentStatus) (*domain.Component, error) {
	var updated domain.Component
	_, err := s.mutate(ctx, slug, "update_component_status", func(page *domain.StatusPage) error {
		c, err := UpdateComponentStatus(page, componentID, status)
		if err != nil {
			return err
		}
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveComponent deletes a component. Incidents referencing it are untouched.
func (s *Service) RemoveComponent(ctx context.Context, slug, componentID string) error {
	_, err := s.mutate(ctx, slug, "remove_component", func(page *domain.StatusPage) error {
		if !RemoveComponent(page, componentID) {
			return ErrComponentNotFound
		}
		return nil
	})
	return err
}

// ReportIncident opens a new incident and notifies subscribers.
func (s *Service) ReportIncident(ctx context.Context, slug string, draft IncidentDraft) (*domain.Incident, error) {
	draft.Title = sanitize.Text(draft.Title)
	draft.Message = sanitize.Text(draft.Message)

	var incident domain.Incident
	snapshot, err := s.mutate(ctx, slug, "report_incident", func(page *domain.StatusPage) error {
		inc, err := ReportIncident(page, draft, s.newID, s.now())
		if err != nil {
			return err
		}
		incident = *inc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.OnIncidentReported(ctx, snapshot, &incident); err != nil {
			slog.Error("failed to notify incident reported", "slug", snapshot.Slug, "incident_id", incident.ID, "error", err)
		}
	}
	return &incident, nil
}

// PostIncidentUpdate appends a timeline entry to an incident and notifies subscribers.
func (s *Service) PostIncidentUpdate(ctx context.Context, slug, incidentID string, draft UpdateDraft) (*domain.Incident, error) {
	draft.Message = sanitize.Text(draft.Message)

	var incident domain.Incident
	snapshot, err := s.mutate(ctx, slug, "post_incident_update", func(page *domain.StatusPage) error {
		inc, err := PostIncidentUpdate(page, incidentID, draft, s.newID, s.now())
		if err != nil {
			return err
		}
		incident = *inc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		update := incident.Updates[len(incident.Updates)-1]
		if err := s.notifier.OnIncidentUpdated(ctx, snapshot, &incident, &update); err != nil {
			slog.Error("failed to notify incident update", "slug", snapshot.Slug, "incident_id", incident.ID, "error", err)
		}
	}
	return &incident, nil
}

// Subscribe adds email to the page subscribers. Subscribing twice is a no-op.
func (s *Service) Subscribe(ctx context.Context, slug, email string) error {
	normalized := NormalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return ErrInvalidEmail
	}

	_, err = s.mutate(ctx, slug, "subscribe", func(page *domain.StatusPage) error {
		if !AddSubscriber(page, normalized) {
			return errUnchanged
		}
		return nil
	})
	return err
}

// Unsubscribe removes the subscriber named by a signed unsubscribe token.
func (s *Service) Unsubscribe(ctx context.Context, slug, token string) error {
	if s.unsubscribes == nil {
		return ErrInvalidUnsubscribeToken
	}
	tokenSlug, email, err := s.unsubscribes.Verify(token)
	if err != nil || tokenSlug != slug {
		return ErrInvalidUnsubscribeToken
	}

	_, err = s.mutate(ctx, slug, "unsubscribe", func(page *domain.StatusPage) error {
		if !RemoveSubscriber(page, email) {
			return errUnchanged
		}
		return nil
	})
	return err
}

// SetPro toggles the entitlement flag of a page.
func (s *Service) SetPro(ctx context.Context, slug string, isPro bool) (*domain.StatusPage, error) {
	page, err := s.repo.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page.IsPro = isPro
	if err := s.repo.UpsertPage(ctx, page); err != nil {
		return nil, fmt.Errorf("save page: %w", err)
	}
	return s.repo.GetPageBySlug(ctx, slug)
}

// ListPages returns all stored pages.
func (s *Service) ListPages(ctx context.Context) ([]domain.StatusPage, error) {
	return s.repo.ListPages(ctx)
}

// mutate runs fn inside the atomic page update. A mutation that reports
// errUnchanged succeeds without a write.
func (s *Service) mutate(ctx context.Context, slug, operation string, fn MutateFunc) (*domain.StatusPage, error) {
	page, err := s.repo.UpdatePage(ctx, slug, fn)
	if errors.Is(err, errUnchanged) {
		recordMutation(operation, nil)
		return nil, nil
	}
	recordMutation(operation, err)
	return page, err
}
