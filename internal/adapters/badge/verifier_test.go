package badge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"slotbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopVerifier(t *testing.T) {
	require.NoError(t, NoopVerifier{}.Verify(context.Background(), "u", "QR-1"))
	require.ErrorIs(t, NoopVerifier{}.Verify(context.Background(), "u", "  "), domain.ErrInvalidBadge)
}

func TestHTTPVerifier(t *testing.T) {
	var gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.URL.Query().Get("user_id")
		switch r.URL.Path {
		case "/badges/QR-1":
			w.WriteHeader(http.StatusOK)
		case "/badges/QR-other":
			w.WriteHeader(http.StatusForbidden)
		case "/badges/QR-down":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.Client(), srv.URL)
	tests := []struct {
		name    string
		badge   string
		wantErr error
		anyErr  bool
	}{
		{name: "valid", badge: "QR-1"},
		{name: "someone else's badge", badge: "QR-other", wantErr: domain.ErrInvalidBadge},
		{name: "unknown badge", badge: "QR-404", wantErr: domain.ErrInvalidBadge},
		{name: "empty", badge: "", wantErr: domain.ErrInvalidBadge},
		{name: "service failing", badge: "QR-down", anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), "user 1", tt.badge)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrInvalidBadge)
			default:
				require.NoError(t, err)
				assert.Equal(t, "user 1", gotUser)
			}
		})
	}
}
