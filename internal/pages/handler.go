package pages

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrPageNotFound, Status: http.StatusNotFound, Message: "status page not found"},
	{Error: ErrInvalidEditToken, Status: http.StatusNotFound, Message: "invalid or missing edit token"},
	{Error: ErrComponentNotFound, Status: http.StatusNotFound, Message: "component not found"},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "incident not found"},
	{Error: ErrComponentLimitReached, Status: http.StatusForbidden},
	{Error: ErrNameRequired, Status: http.StatusBadRequest},
	{Error: ErrInvalidComponentType, Status: http.StatusBadRequest},
	{Error: ErrInvalidComponentStatus, Status: http.StatusBadRequest},
	{Error: ErrIncidentFieldsRequired, Status: http.StatusBadRequest},
	{Error: ErrInvalidIncidentStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidEmail, Status: http.StatusBadRequest},
	{Error: ErrInvalidUnsubscribeToken, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for status pages.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new pages handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterPublicRoutes registers routes addressed by slug.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/pages", h.CreatePage)
	r.Get("/pages/{slug}", h.GetPublicPage)
	r.Post("/pages/{slug}/subscribers", h.Subscribe)
	r.Post("/pages/{slug}/unsubscribe", h.Unsubscribe)
}

// RegisterEditRoutes registers routes authorized by the edit token in the path.
// Handlers below read the page slug resolved by RequireEditToken.
func (h *Handler) RegisterEditRoutes(r chi.Router) {
	r.Route("/edit/{token}", func(r chi.Router) {
		r.Use(httputil.RequireEditToken(h.service, errorMappings))
		r.Get("/", h.GetEditablePage)
		r.Post("/components", h.AddComponent)
		r.Patch("/components/{id}", h.UpdateComponentStatus)
		r.Delete("/components/{id}", h.RemoveComponent)
		r.Post("/incidents", h.ReportIncident)
		r.Post("/incidents/{id}/updates", h.PostIncidentUpdate)
	})
}

// CreatePageRequest represents the request body for creating a page.
type CreatePageRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

// AddComponentRequest represents the request body for adding a component.
type AddComponentRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Type        string `json:"type" validate:"required,oneof=API Website Database Service CDN DNS"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateComponentStatusRequest represents the request body for changing a component status.
type UpdateComponentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=operational degraded down"`
}

// ReportIncidentRequest represents the request body for reporting an incident.
type ReportIncidentRequest struct {
	Title      string   `json:"title" validate:"required,max=255"`
	Message    string   `json:"message" validate:"required,max=5000"`
	Components []string `json:"components"`
}

// PostIncidentUpdateRequest represents the request body for an incident update.
type PostIncidentUpdateRequest struct {
	Status  string `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
	Message string `json:"message" validate:"required,max=5000"`
}

// SubscribeRequest represents the request body for subscribing to a page.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// UnsubscribeRequest represents the request body for leaving a page's subscriber list.
type UnsubscribeRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreatePage handles POST /pages.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !h.decode(w, r, &req) {
		return
	}

	page, err := h.service.CreatePage(r.Context(), CreatePageInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, CreatedPage{
		Slug:      page.Slug,
		EditToken: page.EditToken,
		Page:      page,
	})
}

// GetPublicPage handles GET /pages/{slug}.
func (h *Handler) GetPublicPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetPublicPage(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

// Subscribe handles POST /pages/{slug}/subscribers.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Subscribe(r.Context(), chi.URLParam(r, "slug"), req.Email); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusAccepted, map[string]string{"status": "subscribed"})
}

// Unsubscribe handles POST /pages/{slug}/unsubscribe.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Unsubscribe(r.Context(), chi.URLParam(r, "slug"), req.Token); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.NoContent(w)
}

// GetEditablePage handles GET /edit/{token}.
func (h *Handler) GetEditablePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetPage(r.Context(), httputil.GetPageSlug(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, NewEditablePage(page, h.service.ComponentLimit()))
}

// AddComponent handles POST /edit/{token}/components.
func (h *Handler) AddComponent(w http.ResponseWriter, r *http.Request) {
	var req AddComponentRequest
	if !h.decode(w, r, &req) {
		return
	}

	component, err := h.service.AddComponent(r.Context(), httputil.GetPageSlug(r.Context()), ComponentDraft{
		Name:        req.Name,
		Type:        domain.ComponentType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, component)
}

// UpdateComponentStatus handles PATCH /edit/{token}/components/{id}.
func (h *Handler) UpdateComponentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateComponentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	component, err := h.service.UpdateComponentStatus(r.Context(),
		httputil.GetPageSlug(r.Context()),
		chi.URLParam(r, "id"),
		domain.ComponentStatus(req.Status),
	)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, component)
}

// RemoveComponent handles DELETE /edit/{token}/components/{id}.
func (h *Handler) RemoveComponent(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveComponent(r.Context(), httputil.GetPageSlug(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.NoContent(w)
}

// ReportIncident handles POST /edit/{token}/incidents.
func (h *Handler) ReportIncident(w http.ResponseWriter, r *http.Request) {
	var req ReportIncidentRequest
	if !h.decode(w, r, &req) {
		return
	}

	incident, err := h.service.ReportIncident(r.Context(), httputil.GetPageSlug(r.Context()), IncidentDraft{
		Title:        req.Title,
		Message:      req.Message,
		ComponentIDs: req.Components,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// PostIncidentUpdate handles POST /edit/{token}/incidents/{id}/updates.
func (h *Handler) PostIncidentUpdate(w http.ResponseWriter, r *http.Request) {
	var req PostIncidentUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	incident, err := h.service.PostIncidentUpdate(r.Context(),
		httputil.GetPageSlug(r.Context()),
		chi.URLParam(r, "id"),
		UpdateDraft{
			Status:  domain.IncidentStatus(req.Status),
			Message: req.Message,
		},
	)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// decode reads and validates a JSON body. It writes the error response and
// returns false when the request is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		httputil.ValidationError(w, err)
		return false
	}

	return true
}
