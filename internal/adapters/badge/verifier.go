// Package badge verifies attendee badge references against the badge/QR system.
package badge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"slotbooking/internal/domain"
)

// NoopVerifier accepts any non-empty badge reference. Used when no badge service is configured.
type NoopVerifier struct{}

func (NoopVerifier) Verify(ctx context.Context, userID, badgeRef string) error {
	if strings.TrimSpace(badgeRef) == "" {
		return domain.ErrInvalidBadge
	}
	return nil
}

type httpVerifier struct {
	client  *http.Client
	baseURL string
}

// NewHTTPVerifier checks badges with GET {baseURL}/badges/{ref}?user_id={userID}.
// 200 means valid; 403 and 404 mean the badge does not belong to the user.
func NewHTTPVerifier(client *http.Client, baseURL string) domain.BadgeVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpVerifier{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (v *httpVerifier) Verify(ctx context.Context, userID, badgeRef string) error {
	if strings.TrimSpace(badgeRef) == "" {
		return domain.ErrInvalidBadge
	}
	u := fmt.Sprintf("%s/badges/%s?user_id=%s", v.baseURL, url.PathEscape(badgeRef), url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create badge request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("badge service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound, http.StatusForbidden:
		return domain.ErrInvalidBadge
	default:
		return fmt.Errorf("badge service returned status: %d", resp.StatusCode)
	}
}
