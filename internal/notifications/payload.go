package notifications

import (
	"time"

	"github.com/bissquit/pagelite/internal/domain"
)

// MessageType defines the type of notification.
type MessageType string

// Message types.
const (
	MessageTypeReported MessageType = "incident_reported" // Incident opened
	MessageTypeUpdated  MessageType = "incident_updated"  // Timeline entry posted
	MessageTypeResolved MessageType = "incident_resolved" // Update moved the incident to resolved
)

// NotificationPayload contains data for rendering a notification.
type NotificationPayload struct {
	MessageType    MessageType  `json:"message_type"`
	Page           PageData     `json:"page"`
	Incident       IncidentData `json:"incident"`
	UnsubscribeURL string       `json:"unsubscribe_url,omitempty"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// PageData contains status page information for notification.
type PageData struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	OverallStatus string `json:"overall_status"`
}

// IncidentData contains incident information for notification.
type IncidentData struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	Components []string   `json:"components"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Duration returns how long the incident lasted. Zero while it is open.
func (d IncidentData) Duration() time.Duration {
	if d.ResolvedAt == nil {
		return 0
	}
	return d.ResolvedAt.Sub(d.CreatedAt)
}

// NewReportedPayload creates a payload for a newly reported incident.
func NewReportedPayload(page *domain.StatusPage, incident *domain.Incident, pageURL string) NotificationPayload {
	return NotificationPayload{
		MessageType: MessageTypeReported,
		Page:        newPageData(page, pageURL),
		Incident:    newIncidentData(page, incident, incident.Updates[0]),
		GeneratedAt: time.Now(),
	}
}

// NewUpdatePayload creates a payload for an incident update. Updates that
// resolve the incident produce a resolved message.
func NewUpdatePayload(page *domain.StatusPage, incident *domain.Incident, update *domain.IncidentUpdate, pageURL string) NotificationPayload {
	messageType := MessageTypeUpdated
	if update.Status.IsResolved() {
		messageType = MessageTypeResolved
	}
	return NotificationPayload{
		MessageType: messageType,
		Page:        newPageData(page, pageURL),
		Incident:    newIncidentData(page, incident, *update),
		GeneratedAt: time.Now(),
	}
}

func newPageData(page *domain.StatusPage, pageURL string) PageData {
	return PageData{
		Slug:          page.Slug,
		Name:          page.Name,
		URL:           pageURL,
		OverallStatus: domain.DeriveOverallStatus(page.Components).Label(),
	}
}

// newIncidentData resolves component ids to names. Ids of removed
// components are skipped.
func newIncidentData(page *domain.StatusPage, incident *domain.Incident, update domain.IncidentUpdate) IncidentData {
	names := make([]string, 0, len(incident.Components))
	for _, id := range incident.Components {
		if c, ok := page.FindComponent(id); ok {
			names = append(names, c.Name)
		}
	}

	data := IncidentData{
		ID:         incident.ID,
		Title:      incident.Title,
		Status:     string(update.Status),
		Message:    update.Message,
		Components: names,
		CreatedAt:  incident.CreatedAt.Time(),
	}
	if incident.ResolvedAt != nil {
		resolvedAt := incident.ResolvedAt.Time()
		data.ResolvedAt = &resolvedAt
	}
	return data
}
