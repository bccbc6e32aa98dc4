package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload(messageType MessageType) NotificationPayload {
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := NotificationPayload{
		MessageType: messageType,
		Page: PageData{
			Slug:          "abc123",
			Name:          "Acme",
			URL:           "https://status.example.com/pages/abc123",
			OverallStatus: "Partial Outage",
		},
		Incident: IncidentData{
			ID:         "inc-1",
			Title:      "API errors",
			Status:     "investigating",
			Message:    "We are looking into elevated error rates.",
			Components: []string{"API", "Website"},
			CreatedAt:  createdAt,
		},
		GeneratedAt: createdAt,
	}
	if messageType == MessageTypeResolved {
		resolvedAt := createdAt.Add(90 * time.Minute)
		payload.Incident.Status = "resolved"
		payload.Incident.Message = "Error rates are back to normal."
		payload.Incident.ResolvedAt = &resolvedAt
	}
	return payload
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	assert.Len(t, r.templates, 3)
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	tests := []struct {
		name        string
		messageType MessageType
		wantSubject string
		wantBody    []string
	}{
		{
			name:        "reported",
			messageType: MessageTypeReported,
			wantSubject: "[Incident] Acme: API errors",
			wantBody: []string{
				"Acme has reported a new incident.",
				"Status: Investigating",
				"Affected: API, Website",
				"Started: Mar 1, 2024 12:00 UTC",
				"elevated error rates",
				"Current status: Partial Outage",
				"https://status.example.com/pages/abc123",
			},
		},
		{
			name:        "updated",
			messageType: MessageTypeUpdated,
			wantSubject: "[Update] Acme: API errors",
			wantBody: []string{
				`Acme posted an update on "API errors".`,
				"Status: Investigating",
				"Affected: API, Website",
			},
		},
		{
			name:        "resolved",
			messageType: MessageTypeResolved,
			wantSubject: "[Resolved] Acme: API errors",
			wantBody: []string{
				`Acme has resolved "API errors".`,
				"Error rates are back to normal.",
				"Resolved: Mar 1, 2024 13:30 UTC",
				"Duration: 1h 30m",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := r.Render(testPayload(tt.messageType))
			require.NoError(t, err)

			assert.Equal(t, tt.wantSubject, subject)
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			assert.NotContains(t, body, "To stop receiving")
		})
	}
}

func TestRenderer_UnsubscribeLink(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	payload := testPayload(MessageTypeReported)
	payload.UnsubscribeURL = "https://status.example.com/pages/abc123/unsubscribe?token=t"

	_, body, err := r.Render(payload)
	require.NoError(t, err)
	assert.Contains(t, body, "To stop receiving these emails: https://status.example.com/pages/abc123/unsubscribe?token=t")
}

func TestRenderer_NoComponents(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	payload := testPayload(MessageTypeReported)
	payload.Incident.Components = nil

	_, body, err := r.Render(payload)
	require.NoError(t, err)
	assert.NotContains(t, body, "Affected:")
}

func TestRenderer_UnknownMessageType(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, _, err = r.Render(testPayload("maintenance_scheduled"))
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Investigating", titleCase("investigating"))
	assert.Equal(t, "Monitoring", titleCase("monitoring"))
}
