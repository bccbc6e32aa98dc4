package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("page missing")

func TestHandleError(t *testing.T) {
	mappings := []ErrorMapping{
		{Error: errMissing, Status: http.StatusNotFound, Message: "status page not found"},
		{Error: errUnknownToken, Status: http.StatusBadRequest},
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"mapped with message", fmt.Errorf("load: %w", errMissing), http.StatusNotFound, `{"error":{"message":"status page not found"}}`},
		{"mapped without message", errUnknownToken, http.StatusBadRequest, `{"error":{"message":"unknown token"}}`},
		{"client went away", fmt.Errorf("query: %w", context.Canceled), http.StatusServiceUnavailable, `{"error":{"message":"request aborted"}}`},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, `{"error":{"message":"request aborted"}}`},
		{"unmapped", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":{"message":"internal error"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(context.Background(), rec, tt.err, mappings)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
