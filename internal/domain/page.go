package domain

import "time"

// Millis is a point in time serialized as milliseconds since the Unix epoch.
type Millis int64

// Now returns the current time truncated to milliseconds.
func Now() Millis {
	return MillisOf(time.Now())
}

// MillisOf converts t to Millis, dropping sub-millisecond precision.
func MillisOf(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time returns m as a UTC time.Time.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// ComponentType is the kind of a monitored component.
type ComponentType string

// Component types.
const (
	ComponentTypeAPI      ComponentType = "API"
	ComponentTypeWebsite  ComponentType = "Website"
	ComponentTypeDatabase ComponentType = "Database"
	ComponentTypeService  ComponentType = "Service"
	ComponentTypeCDN      ComponentType = "CDN"
	ComponentTypeDNS      ComponentType = "DNS"
)

// IsValid checks if the component type is valid.
func (t ComponentType) IsValid() bool {
	switch t {
	case ComponentTypeAPI, ComponentTypeWebsite, ComponentTypeDatabase,
		ComponentTypeService, ComponentTypeCDN, ComponentTypeDNS:
		return true
	}
	return false
}

// ComponentStatus represents the operational status of a component.
type ComponentStatus string

// Component statuses.
const (
	ComponentStatusOperational ComponentStatus = "operational"
	ComponentStatusDegraded    ComponentStatus = "degraded"
	ComponentStatusDown        ComponentStatus = "down"
)

// IsValid checks if the component status is valid.
func (s ComponentStatus) IsValid() bool {
	return s == ComponentStatusOperational ||
		s == ComponentStatusDegraded ||
		s == ComponentStatusDown
}

// IncidentStatus represents the lifecycle stage of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IsResolved reports whether the status closes the incident.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved
}

// Component is a monitored unit shown on a status page.
type Component struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        ComponentType   `json:"type"`
	Status      ComponentStatus `json:"status"`
	Description string          `json:"description,omitempty"`
}

// IncidentUpdate is an immutable entry in an incident timeline.
type IncidentUpdate struct {
	ID        string         `json:"id"`
	Message   string         `json:"message"`
	Status    IncidentStatus `json:"status"`
	Timestamp Millis         `json:"timestamp"`
}

// Incident is a reported service event with its timeline.
// Components holds component ids; they are not kept in sync with deletions.
type Incident struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Status     IncidentStatus   `json:"status"`
	Components []string         `json:"components"`
	Updates    []IncidentUpdate `json:"updates"`
	CreatedAt  Millis           `json:"created_at"`
	ResolvedAt *Millis          `json:"resolved_at,omitempty"`
}

// IsActive reports whether the incident is still open.
func (i *Incident) IsActive() bool {
	return !i.Status.IsResolved()
}

// StatusPage is the root aggregate: one page per tenant.
type StatusPage struct {
	Slug        string      `json:"slug"`
	EditToken   string      `json:"edit_token"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Components  []Component `json:"components"`
	Incidents   []Incident  `json:"incidents"`
	Subscribers []string    `json:"subscribers"`
	CreatedAt   Millis      `json:"created_at"`
	UpdatedAt   Millis      `json:"updated_at"`
	IsPro       bool        `json:"is_pro"`
}

// FindComponent returns the component with the given id.
func (p *StatusPage) FindComponent(id string) (*Component, bool) {
	for i := range p.Components {
		if p.Components[i].ID == id {
			return &p.Components[i], true
		}
	}
	return nil, false
}

// FindIncident returns the incident with the given id.
func (p *StatusPage) FindIncident(id string) (*Incident, bool) {
	for i := range p.Incidents {
		if p.Incidents[i].ID == id {
			return &p.Incidents[i], true
		}
	}
	return nil, false
}

// HasSubscriber reports whether email is subscribed. email must be normalized.
func (p *StatusPage) HasSubscriber(email string) bool {
	for _, s := range p.Subscribers {
		if s == email {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the page.
func (p *StatusPage) Clone() *StatusPage {
	c := *p
	c.Components = append(make([]Component, 0, len(p.Components)), p.Components...)
	c.Subscribers = append(make([]string, 0, len(p.Subscribers)), p.Subscribers...)
	c.Incidents = make([]Incident, len(p.Incidents))
	for i, inc := range p.Incidents {
		inc.Components = append(make([]string, 0, len(inc.Components)), inc.Components...)
		inc.Updates = append(make([]IncidentUpdate, 0, len(inc.Updates)), inc.Updates...)
		if inc.ResolvedAt != nil {
			resolved := *inc.ResolvedAt
			inc.ResolvedAt = &resolved
		}
		c.Incidents[i] = inc
	}
	return &c
}
