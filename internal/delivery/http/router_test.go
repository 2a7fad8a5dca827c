package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"slotbooking/internal/delivery/http/controllers"
	"slotbooking/internal/domain"

	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]domain.Principal

func (s stubVerifier) Verify(token string) (domain.Principal, error) {
	p, ok := s[token]
	if !ok {
		return domain.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

type stubCatalog struct{ domain.CatalogService }

func (stubCatalog) ImportSessionize(context.Context, string, string) (domain.ImportSummary, error) {
	return domain.ImportSummary{Rooms: 1}, nil
}

type stubAvailability struct{ domain.AvailabilityService }

func (stubAvailability) ScheduleFor(context.Context, string) ([]domain.ScheduleEntry, error) {
	return nil, nil
}

func newTestRouter(health HealthCheck) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterDeps{
		Logger: logger,
		Verifier: stubVerifier{
			"attendee": {UserID: "u-1"},
			"admin":    {UserID: "u-2", Roles: []string{domain.RoleAdmin}},
		},
		Booking:      controllers.NewBookingController(logger, nil),
		Availability: controllers.NewAvailabilityController(logger, stubAvailability{}),
		Catalog:      controllers.NewCatalogController(logger, stubCatalog{}),
		Health:       health,
	})
}

func TestRouter_Access(t *testing.T) {
	const importPath = "/events/0d9e8f7a-6b5c-4d3e-8f2a-1b0c9d8e7f6a/import/sessionize/ab12"

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"schedule is public", http.MethodGet, "/events/0d9e8f7a-6b5c-4d3e-8f2a-1b0c9d8e7f6a/schedule", "", http.StatusOK},
		{"booking needs a token", http.MethodPost, "/slots/5f1c8f7e-1d2a-4c3b-9e8f-0a1b2c3d4e5f/register", "", http.StatusUnauthorized},
		{"import needs a token", http.MethodPost, importPath, "", http.StatusUnauthorized},
		{"import needs admin", http.MethodPost, importPath, "attendee", http.StatusForbidden},
		{"admin imports", http.MethodPost, importPath, "admin", http.StatusOK},
		{"wrong method", http.MethodGet, "/slots/5f1c8f7e-1d2a-4c3b-9e8f-0a1b2c3d4e5f/register", "", http.StatusMethodNotAllowed},
	}
	router := newTestRouter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestRouter_Healthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	down := func(context.Context) error { return errors.New("dial tcp 127.0.0.1:5432: connection refused") }
	rr = httptest.NewRecorder()
	newTestRouter(down).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "5432")
}
