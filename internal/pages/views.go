package pages

import "github.com/bissquit/pagelite/internal/domain"

// PublicPage is what visitors see. It never carries the edit token or the
// subscriber list.
type PublicPage struct {
	Slug               string               `json:"slug"`
	Name               string               `json:"name"`
	Description        string               `json:"description,omitempty"`
	OverallStatus      domain.OverallStatus `json:"overall_status"`
	OverallStatusLabel string               `json:"overall_status_label"`
	Components         []domain.Component   `json:"components"`
	ActiveIncidents    []domain.Incident    `json:"active_incidents"`
	ResolvedIncidents  []domain.Incident    `json:"resolved_incidents"`
	CreatedAt          domain.Millis        `json:"created_at"`
	UpdatedAt          domain.Millis        `json:"updated_at"`
}

// NewPublicPage builds the public view of a page.
func NewPublicPage(page *domain.StatusPage) *PublicPage {
	overall := domain.DeriveOverallStatus(page.Components)
	active, resolved := SplitIncidents(page.Incidents)

	components := page.Components
	if components == nil {
		components = make([]domain.Component, 0)
	}

	return &PublicPage{
		Slug:               page.Slug,
		Name:               page.Name,
		Description:        page.Description,
		OverallStatus:      overall,
		OverallStatusLabel: overall.Label(),
		Components:         components,
		ActiveIncidents:    active,
		ResolvedIncidents:  resolved,
		CreatedAt:          page.CreatedAt,
		UpdatedAt:          page.UpdatedAt,
	}
}

// EditablePage is the owner's view: the full record plus derived status.
type EditablePage struct {
	*domain.StatusPage
	OverallStatus      domain.OverallStatus `json:"overall_status"`
	OverallStatusLabel string               `json:"overall_status_label"`
	ComponentLimit     *int                 `json:"component_limit"`
}

// NewEditablePage builds the owner's view. ComponentLimit is nil for Pro pages.
func NewEditablePage(page *domain.StatusPage, limit int) *EditablePage {
	overall := domain.DeriveOverallStatus(page.Components)
	view := &EditablePage{
		StatusPage:         page,
		OverallStatus:      overall,
		OverallStatusLabel: overall.Label(),
	}
	if !page.IsPro {
		view.ComponentLimit = &limit
	}
	return view
}

// CreatedPage is returned once, when a page is created.
type CreatedPage struct {
	Slug      string             `json:"slug"`
	EditToken string             `json:"edit_token"`
	Page      *domain.StatusPage `json:"page"`
}
