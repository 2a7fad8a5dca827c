package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingController_Register(t *testing.T) {
	res := &domain.Reservation{ID: "r-1", SlotID: testSlotID, UserID: "u-1", Status: domain.StatusRegistered}

	tests := []struct {
		name       string
		slotID     string
		userID     string
		svc        *fakeBookingService
		wantStatus int
		wantCode   string
	}{
		{"created", testSlotID, "u-1", &fakeBookingService{res: res, created: true}, http.StatusCreated, ""},
		{"already registered", testSlotID, "u-1", &fakeBookingService{res: res}, http.StatusOK, ""},
		{"sold out", testSlotID, "u-1", &fakeBookingService{err: fmt.Errorf("reserve: %w", domain.ErrSlotFull)}, http.StatusConflict, helpers.ErrCodeSlotFull},
		{"break slot", testSlotID, "u-1", &fakeBookingService{err: domain.ErrSlotNotBookable}, http.StatusUnprocessableEntity, helpers.ErrCodeSlotNotBookable},
		{"unknown slot", testSlotID, "u-1", &fakeBookingService{err: domain.ErrNotFound}, http.StatusNotFound, helpers.ErrCodeNotFound},
		{"contention", testSlotID, "u-1", &fakeBookingService{err: domain.ErrContention}, http.StatusServiceUnavailable, helpers.ErrCodeContention},
		{"timeout", testSlotID, "u-1", &fakeBookingService{err: domain.ErrTimeout}, http.StatusGatewayTimeout, helpers.ErrCodeTimeout},
		{"store failure", testSlotID, "u-1", &fakeBookingService{err: errors.New("pq: broken pipe")}, http.StatusInternalServerError, helpers.ErrCodeInternalError},
		{"invalid slot id", "not-a-uuid", "u-1", &fakeBookingService{}, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"anonymous", testSlotID, "", &fakeBookingService{}, http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewBookingController(testLogger(), tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/slots/"+tt.slotID+"/register", nil)
			if tt.userID != "" {
				req = withUser(req, tt.userID)
			}

			rr := serve("POST /slots/{slotID}/register", ctrl.Register, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var got domain.Reservation
			apiErr := decodeEnvelope(t, rr, &got)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, "r-1", got.ID)
			assert.Equal(t, "u-1", tt.svc.gotUserID)
			assert.Equal(t, testSlotID, tt.svc.gotSlotID)
		})
	}
}

func TestBookingController_SoldOutMessage(t *testing.T) {
	ctrl := NewBookingController(testLogger(), &fakeBookingService{err: domain.ErrSlotFull})
	req := withUser(httptest.NewRequest(http.MethodPost, "/slots/"+testSlotID+"/register", nil), "u-1")

	rr := serve("POST /slots/{slotID}/register", ctrl.Register, req)

	apiErr := decodeEnvelope(t, rr, nil)
	require.NotNil(t, apiErr)
	assert.Equal(t, "Sold Out", apiErr.Message)
}

func TestBookingController_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakeBookingService
		wantStatus int
	}{
		{"cancelled", &fakeBookingService{res: &domain.Reservation{ID: "r-1", Status: domain.StatusCancelled}}, http.StatusOK},
		{"not registered", &fakeBookingService{err: domain.ErrNotRegistered}, http.StatusNotFound},
		{"already checked in", &fakeBookingService{err: domain.ErrInvalidTransition}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewBookingController(testLogger(), tt.svc)
			req := withUser(httptest.NewRequest(http.MethodDelete, "/slots/"+testSlotID+"/register", nil), "u-1")

			rr := serve("DELETE /slots/{slotID}/register", ctrl.Cancel, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestBookingController_CheckIn(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *fakeBookingService
		wantStatus int
		wantCode   string
		wantBadge  string
	}{
		{"checked in", `{"badge_ref":" QR-1 "}`, &fakeBookingService{res: &domain.Reservation{ID: "r-1", Status: domain.StatusCheckedIn}}, http.StatusOK, "", "QR-1"},
		{"missing badge", `{}`, &fakeBookingService{}, http.StatusBadRequest, helpers.ErrCodeBadRequest, ""},
		{"rejected badge", `{"badge_ref":"FORGED"}`, &fakeBookingService{err: domain.ErrInvalidBadge}, http.StatusUnprocessableEntity, helpers.ErrCodeInvalidBadge, "FORGED"},
		{"too early", `{"badge_ref":"QR-1"}`, &fakeBookingService{err: domain.ErrInvalidCheckInWindow}, http.StatusUnprocessableEntity, helpers.ErrCodeInvalidCheckInWindow, "QR-1"},
		{"twice", `{"badge_ref":"QR-1"}`, &fakeBookingService{err: domain.ErrInvalidTransition}, http.StatusConflict, helpers.ErrCodeInvalidTransition, "QR-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewBookingController(testLogger(), tt.svc)
			req := withUser(httptest.NewRequest(http.MethodPost, "/slots/"+testSlotID+"/check-in", strings.NewReader(tt.body)), "u-1")

			rr := serve("POST /slots/{slotID}/check-in", ctrl.CheckIn, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decodeEnvelope(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
			}
			assert.Equal(t, tt.wantBadge, tt.svc.gotBadge)
		})
	}
}

func TestBookingController_CheckOut(t *testing.T) {
	svc := &fakeBookingService{res: &domain.Reservation{ID: "r-1", Status: domain.StatusCheckedOut}}
	ctrl := NewBookingController(testLogger(), svc)
	req := withUser(httptest.NewRequest(http.MethodPost, "/slots/"+testSlotID+"/check-out", nil), "u-9")

	rr := serve("POST /slots/{slotID}/check-out", ctrl.CheckOut, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Reservation
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, domain.StatusCheckedOut, got.Status)
	assert.Equal(t, "u-9", svc.gotUserID)
}

func TestBookingController_ListMyReservations(t *testing.T) {
	svc := &fakeBookingService{
		items: []*domain.Reservation{{ID: "r-2"}, {ID: "r-1"}},
		total: 12,
	}
	ctrl := NewBookingController(testLogger(), svc)
	req := withUser(httptest.NewRequest(http.MethodGet, "/me/reservations?page=2&page_size=5", nil), "u-1")

	rr := serve("GET /me/reservations", ctrl.ListMyReservations, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got MyReservationsResponse
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Len(t, got.Items, 2)
	assert.Equal(t, helpers.PaginationMeta{Page: 2, PageSize: 5, Total: 12, TotalPages: 3, HasMore: true}, got.Pagination)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 5}, svc.gotParams)
}

func TestBookingController_ListMyReservationsEmpty(t *testing.T) {
	ctrl := NewBookingController(testLogger(), &fakeBookingService{})
	req := withUser(httptest.NewRequest(http.MethodGet, "/me/reservations", nil), "u-1")

	rr := serve("GET /me/reservations", ctrl.ListMyReservations, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"items":[]`)
}
