package pages

import (
	"slices"
	"strings"

	"github.com/bissquit/pagelite/internal/domain"
)

// DefaultComponentLimit is the number of components a free page may hold.
const DefaultComponentLimit = 5

// ComponentDraft holds the owner supplied fields of a new component.
type ComponentDraft struct {
	Name        string
	Type        domain.ComponentType
	Description string
}

// IncidentDraft holds the owner supplied fields of a new incident.
type IncidentDraft struct {
	Title        string
	Message      string
	ComponentIDs []string
}

// UpdateDraft holds the fields of a follow-up incident update.
type UpdateDraft struct {
	Status  domain.IncidentStatus
	Message string
}

// AddComponent appends a new operational component to the page.
func AddComponent(page *domain.StatusPage, draft ComponentDraft, limit int, newID func() string) (*domain.Component, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !draft.Type.IsValid() {
		return nil, ErrInvalidComponentType
	}
	if !page.IsPro && len(page.Components) >= limit {
		return nil, ErrComponentLimitReached
	}

	page.Components = append(page.Components, domain.Component{
		ID:          newID(),
		Name:        name,
		Type:        draft.Type,
		Status:      domain.ComponentStatusOperational,
		Description: strings.TrimSpace(draft.Description),
	})
	return &page.Components[len(page.Components)-1], nil
}

// UpdateComponentStatus sets the status of the component with the given id.
func UpdateComponentStatus(page *domain.StatusPage, id string, status domain.ComponentStatus) (*domain.Component, error) {
	if !status.IsValid() {
		return nil, ErrInvalidComponentStatus
	}
	c, ok := page.FindComponent(id)
	if !ok {
		return nil, ErrComponentNotFound
	}
	c.Status = status
	return c, nil
}

// RemoveComponent deletes the component with the given id. Incidents keep
// their references to it. Returns false if there was no such component.
func RemoveComponent(page *domain.StatusPage, id string) bool {
	idx := slices.IndexFunc(page.Components, func(c domain.Component) bool { return c.ID == id })
	if idx < 0 {
		return false
	}
	page.Components = slices.Delete(page.Components, idx, idx+1)
	return true
}

// ReportIncident prepends a new investigating incident with its first update.
func ReportIncident(page *domain.StatusPage, draft IncidentDraft, newID func() string, now domain.Millis) (*domain.Incident, error) {
	title := strings.TrimSpace(draft.Title)
	message := strings.TrimSpace(draft.Message)
	if title == "" || message == "" {
		return nil, ErrIncidentFieldsRequired
	}

	componentIDs := make([]string, 0, len(draft.ComponentIDs))
	for _, id := range draft.ComponentIDs {
		if _, ok := page.FindComponent(id); !ok {
			return nil, ErrComponentNotFound
		}
		if !slices.Contains(componentIDs, id) {
			componentIDs = append(componentIDs, id)
		}
	}

	incident := domain.Incident{
		ID:         newID(),
		Title:      title,
		Status:     domain.IncidentStatusInvestigating,
		Components: componentIDs,
		Updates: []domain.IncidentUpdate{{
			ID:        newID(),
			Message:   message,
			Status:    domain.IncidentStatusInvestigating,
			Timestamp: now,
		}},
		CreatedAt: now,
	}

	page.Incidents = slices.Insert(page.Incidents, 0, incident)
	return &page.Incidents[0], nil
}

// PostIncidentUpdate appends an update to an incident and moves it to the
// update's status. Resolving stamps ResolvedAt, reopening clears it.
func PostIncidentUpdate(page *domain.StatusPage, incidentID string, draft UpdateDraft, newID func() string, now domain.Millis) (*domain.Incident, error) {
	message := strings.TrimSpace(draft.Message)
	if message == "" {
		return nil, ErrIncidentFieldsRequired
	}
	if !draft.Status.IsValid() {
		return nil, ErrInvalidIncidentStatus
	}
	incident, ok := page.FindIncident(incidentID)
	if !ok {
		return nil, ErrIncidentNotFound
	}

	incident.Updates = append(incident.Updates, domain.IncidentUpdate{
		ID:        newID(),
		Message:   message,
		Status:    draft.Status,
		Timestamp: now,
	})
	incident.Status = draft.Status

	if draft.Status.IsResolved() {
		resolvedAt := now
		incident.ResolvedAt = &resolvedAt
	} else {
		incident.ResolvedAt = nil
	}
	return incident, nil
}

// AddSubscriber adds a normalized email to the page. Returns false if it was
// already subscribed.
func AddSubscriber(page *domain.StatusPage, email string) bool {
	if page.HasSubscriber(email) {
		return false
	}
	page.Subscribers = append(page.Subscribers, email)
	return true
}

// RemoveSubscriber removes a normalized email from the page. Returns false if
// it was not subscribed.
func RemoveSubscriber(page *domain.StatusPage, email string) bool {
	idx := slices.Index(page.Subscribers, email)
	if idx < 0 {
		return false
	}
	page.Subscribers = slices.Delete(page.Subscribers, idx, idx+1)
	return true
}

// SplitIncidents partitions incidents into active and resolved, keeping order.
func SplitIncidents(incidents []domain.Incident) (active, resolved []domain.Incident) {
	active = make([]domain.Incident, 0)
	resolved = make([]domain.Incident, 0)
	for _, inc := range incidents {
		if inc.IsActive() {
			active = append(active, inc)
		} else {
			resolved = append(resolved, inc)
		}
	}
	return active, resolved
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
