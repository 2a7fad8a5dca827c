package sessionize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slotbooking/internal/domain"
)

// DefaultBaseURL is the public Sessionize API root.
const DefaultBaseURL = "https://sessionize.com/api/v2"

type sessionizeHTTPFetcher struct {
	client  *http.Client
	baseURL string
}

// NewHTTPFetcher returns a fetcher that calls the Sessionize "All" endpoint under baseURL.
func NewHTTPFetcher(client *http.Client, baseURL string) domain.SessionFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &sessionizeHTTPFetcher{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *sessionizeHTTPFetcher) Fetch(ctx context.Context, sessionizeID string) (domain.SessionFetcherResponse, error) {
	if sessionizeID == "" || strings.ContainsAny(sessionizeID, "/?#") {
		return domain.SessionFetcherResponse{}, fmt.Errorf("%w: sessionize id", domain.ErrInvalidInput)
	}
	url := fmt.Sprintf("%s/%s/view/All", f.baseURL, sessionizeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.SessionFetcherResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return domain.SessionFetcherResponse{}, fmt.Errorf("failed to fetch from sessionize: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.SessionFetcherResponse{}, fmt.Errorf("%w: sessionize event %s", domain.ErrNotFound, sessionizeID)
	case resp.StatusCode != http.StatusOK:
		return domain.SessionFetcherResponse{}, fmt.Errorf("sessionize api returned status: %d", resp.StatusCode)
	}

	var payload allPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SessionFetcherResponse{}, fmt.Errorf("failed to decode sessionize response: %w", err)
	}
	return payload.toDomain(), nil
}

// allPayload mirrors the "All" response. Session times come without a zone offset and are read as UTC.
type allPayload struct {
	Sessions   []sessionPayload                `json:"sessions"`
	Rooms      []domain.SessionFetcherRoom     `json:"rooms"`
	Categories []domain.SessionFetcherCategory `json:"categories"`
}

type sessionPayload struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	StartsAt         localTime `json:"startsAt"`
	EndsAt           localTime `json:"endsAt"`
	IsServiceSession bool      `json:"isServiceSession"`
	CategoryItems    []int     `json:"categoryItems"`
	RoomID           int       `json:"roomId"`
}

func (p allPayload) toDomain() domain.SessionFetcherResponse {
	out := domain.SessionFetcherResponse{
		Sessions:   make([]domain.SessionFetcherSession, 0, len(p.Sessions)),
		Rooms:      p.Rooms,
		Categories: p.Categories,
	}
	for _, s := range p.Sessions {
		out.Sessions = append(out.Sessions, domain.SessionFetcherSession{
			ID:               s.ID,
			Title:            s.Title,
			StartsAt:         s.StartsAt.Time,
			EndsAt:           s.EndsAt.Time,
			IsServiceSession: s.IsServiceSession,
			CategoryItems:    s.CategoryItems,
			RoomID:           s.RoomID,
		})
	}
	return out
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

type localTime struct {
	time.Time
}

func (t *localTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised sessionize time %q", s)
}
