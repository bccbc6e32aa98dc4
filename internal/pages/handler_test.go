package pages_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/bissquit/pagelite/internal/pages/memory"
	"github.com/bissquit/pagelite/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPISpecPath = "../../api/openapi/openapi.yaml"

// countingRepository counts edit token lookups.
type countingRepository struct {
	*memory.Repository
	tokenLookups atomic.Int64
}

func (r *countingRepository) GetPageByEditToken(ctx context.Context, token string) (*domain.StatusPage, error) {
	r.tokenLookups.Add(1)
	return r.Repository.GetPageByEditToken(ctx, token)
}

func newTestServer(t *testing.T) *testutil.Client {
	t.Helper()
	return newTestServerWithRepo(t, memory.NewRepository())
}

func newTestServerWithRepo(t *testing.T, repo pages.Repository) *testutil.Client {
	t.Helper()

	service := pages.NewService(repo, nil, nil, pages.Config{})
	handler := pages.NewHandler(service)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		handler.RegisterPublicRoutes(r)
		handler.RegisterEditRoutes(r)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return testutil.NewClientWithValidation(t, server.URL, openAPISpecPath)
}

func createPage(t *testing.T, client *testutil.Client) pages.CreatedPage {
	t.Helper()

	resp, err := client.POST("/api/v1/pages", map[string]string{"name": "Acme", "description": "Public services"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created pages.CreatedPage
	testutil.DecodeData(t, resp, &created)
	return created
}

func TestHandler_CreateAndView(t *testing.T) {
	client := newTestServer(t)
	created := createPage(t, client)

	assert.Len(t, created.Slug, 6)
	assert.Len(t, created.EditToken, 26)
	assert.Equal(t, created.Slug, created.Page.Slug)

	resp, err := client.GET("/api/v1/pages/" + created.Slug)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := testutil.ReadBody(t, resp)
	assert.Contains(t, body, `"overall_status":"operational"`)
	assert.Contains(t, body, `"overall_status_label":"All Systems Operational"`)
	assert.NotContains(t, body, created.EditToken)
	assert.NotContains(t, body, "subscribers")
}

func TestHandler_UnknownSlugAndToken(t *testing.T) {
	client := newTestServer(t)

	resp, err := client.GET("/api/v1/pages/nope00")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "status page not found")

	resp, err = client.GET("/api/v1/edit/not-a-token")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "invalid or missing edit token")
}

func TestHandler_CreatePageValidation(t *testing.T) {
	client := newTestServer(t).WithoutValidation()

	resp, err := client.POST("/api/v1/pages", map[string]string{"name": ""})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "validation error")
}

func TestHandler_InvalidJSON(t *testing.T) {
	client := newTestServer(t)

	resp, err := http.Post(client.BaseURL+"/api/v1/pages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "invalid json")
}

func TestHandler_Components(t *testing.T) {
	client := newTestServer(t)
	created := createPage(t, client)
	base := "/api/v1/edit/" + created.EditToken

	var first domain.Component
	for i := 0; i < pages.DefaultComponentLimit; i++ {
		resp, err := client.POST(base+"/components", map[string]string{"name": "API", "type": "API"})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var c domain.Component
		testutil.DecodeData(t, resp, &c)
		if i == 0 {
			first = c
		}
	}

	resp, err := client.POST(base+"/components", map[string]string{"name": "sixth", "type": "CDN"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "upgrade to pro")

	resp, err = client.PATCH(base+"/components/"+first.ID, map[string]string{"status": "down"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated domain.Component
	testutil.DecodeData(t, resp, &updated)
	assert.Equal(t, domain.ComponentStatusDown, updated.Status)

	resp, err = client.GET("/api/v1/pages/" + created.Slug)
	require.NoError(t, err)
	var view pages.PublicPage
	testutil.DecodeData(t, resp, &view)
	assert.Equal(t, domain.OverallStatusMajorOutage, view.OverallStatus)
	assert.Equal(t, "Major Outage", view.OverallStatusLabel)

	resp, err = client.DELETE(base + "/components/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.DELETE(base + "/components/" + first.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET(base)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var editable struct {
		Components     []domain.Component `json:"components"`
		ComponentLimit *int               `json:"component_limit"`
	}
	testutil.DecodeData(t, resp, &editable)
	assert.Len(t, editable.Components, pages.DefaultComponentLimit-1)
	require.NotNil(t, editable.ComponentLimit)
	assert.Equal(t, pages.DefaultComponentLimit, *editable.ComponentLimit)
}

func TestHandler_Incidents(t *testing.T) {
	client := newTestServer(t)
	created := createPage(t, client)
	base := "/api/v1/edit/" + created.EditToken

	resp, err := client.POST(base+"/incidents", map[string]interface{}{
		"title":   "API down",
		"message": "investigating",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var incident domain.Incident
	testutil.DecodeData(t, resp, &incident)
	require.Len(t, incident.Updates, 1)
	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)

	resp, err = client.POST(base+"/incidents/"+incident.ID+"/updates", map[string]string{
		"status":  "resolved",
		"message": "fixed",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	testutil.DecodeData(t, resp, &incident)
	assert.Equal(t, domain.IncidentStatusResolved, incident.Status)
	assert.Len(t, incident.Updates, 2)

	resp, err = client.GET("/api/v1/pages/" + created.Slug)
	require.NoError(t, err)
	var view pages.PublicPage
	testutil.DecodeData(t, resp, &view)
	assert.Empty(t, view.ActiveIncidents)
	require.Len(t, view.ResolvedIncidents, 1)

	resp, err = client.POST(base+"/incidents", map[string]interface{}{
		"title":      "Bad ref",
		"message":    "m",
		"components": []string{"missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHandler_Subscribe(t *testing.T) {
	client := newTestServer(t)
	created := createPage(t, client)

	resp, err := client.POST("/api/v1/pages/"+created.Slug+"/subscribers", map[string]string{"email": "ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.POST("/api/v1/pages/nope00/subscribers", map[string]string{"email": "ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.WithoutValidation().POST("/api/v1/pages/"+created.Slug+"/subscribers", map[string]string{"email": "not-an-email"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.POST("/api/v1/pages/"+created.Slug+"/unsubscribe", map[string]string{"token": "forged"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHandler_EditTokenResolvedOncePerRequest(t *testing.T) {
	repo := &countingRepository{Repository: memory.NewRepository()}
	client := newTestServerWithRepo(t, repo)
	created := createPage(t, client)
	base := "/api/v1/edit/" + created.EditToken

	tests := []struct {
		name   string
		do     func() (*http.Response, error)
		status int
	}{
		{"get", func() (*http.Response, error) { return client.GET(base) }, http.StatusOK},
		{"add component", func() (*http.Response, error) {
			return client.POST(base+"/components", map[string]string{"name": "API", "type": "API"})
		}, http.StatusCreated},
		{"report incident", func() (*http.Response, error) {
			return client.POST(base+"/incidents", map[string]string{"title": "API down", "message": "investigating"})
		}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := repo.tokenLookups.Load()

			resp, err := tt.do()
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			_ = resp.Body.Close()

			assert.Equal(t, int64(1), repo.tokenLookups.Load()-before)
		})
	}
}
