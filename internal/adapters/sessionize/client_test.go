package sessionize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"slotbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allResponse = `{
  "sessions": [
    {"id": "101", "title": "Opening Keynote", "startsAt": "2025-03-01T09:00:00", "endsAt": "2025-03-01T10:00:00",
     "isServiceSession": false, "categoryItems": [7], "roomId": 1},
    {"id": "sv-1", "title": "Lunch", "startsAt": "2025-03-01T12:00:00Z", "endsAt": "2025-03-01T13:00:00Z",
     "isServiceSession": true, "categoryItems": [], "roomId": 1}
  ],
  "rooms": [{"id": 1, "name": "Auditorium", "sort": 0}],
  "categories": [{"id": 3, "title": "Session format", "items": [{"id": 7, "name": "Keynote", "sort": 0}], "sort": 0, "type": "session"}]
}`

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/abc123/view/All":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(allResponse))
		case "/broken/view/All":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), srv.URL+"/")
	data, err := f.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "/abc123/view/All", gotPath)
	require.Len(t, data.Rooms, 1)
	require.Len(t, data.Sessions, 2)
	assert.True(t, data.Sessions[1].IsServiceSession)
	assert.Equal(t, []int{7}, data.Sessions[0].CategoryItems)
	assert.Equal(t, "Session format", data.Categories[0].Title)

	_, err = f.Fetch(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.Fetch(context.Background(), "broken")
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), "../etc")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLocalTime_UnmarshalJSON(t *testing.T) {
	var p sessionPayload
	require.NoError(t, json.Unmarshal([]byte(`{"startsAt":"2025-03-01T09:00:00","endsAt":null}`), &p))
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), p.StartsAt.Time)
	assert.True(t, p.EndsAt.IsZero())

	require.Error(t, json.Unmarshal([]byte(`{"startsAt":"yesterday"}`), &p))
}
