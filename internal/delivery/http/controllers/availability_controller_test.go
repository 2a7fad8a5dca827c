package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"slotbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityController_Availability(t *testing.T) {
	svc := &fakeAvailabilityService{availability: domain.Availability{
		SlotID: testSlotID, EffectiveCapacity: 80, SeatsTaken: 75, Available: 5, AlmostFull: true, Bookable: true,
	}}
	ctrl := NewAvailabilityController(testLogger(), svc)

	rr := serve("GET /slots/{slotID}/availability", ctrl.Availability,
		httptest.NewRequest(http.MethodGet, "/slots/"+testSlotID+"/availability", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Availability
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, 5, got.Available)
	assert.True(t, got.AlmostFull)
}

func TestAvailabilityController_AvailabilityNotFound(t *testing.T) {
	ctrl := NewAvailabilityController(testLogger(), &fakeAvailabilityService{err: domain.ErrNotFound})

	rr := serve("GET /slots/{slotID}/availability", ctrl.Availability,
		httptest.NewRequest(http.MethodGet, "/slots/"+testSlotID+"/availability", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAvailabilityController_Registration(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		registered bool
		wantStatus int
	}{
		{"registered", "u-1", true, http.StatusOK},
		{"not registered", "u-1", false, http.StatusOK},
		{"anonymous", "", false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAvailabilityController(testLogger(), &fakeAvailabilityService{registered: tt.registered})
			req := httptest.NewRequest(http.MethodGet, "/slots/"+testSlotID+"/registration", nil)
			if tt.userID != "" {
				req = withUser(req, tt.userID)
			}

			rr := serve("GET /slots/{slotID}/registration", ctrl.Registration, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got RegistrationStatus
			require.Nil(t, decodeEnvelope(t, rr, &got))
			assert.Equal(t, RegistrationStatus{SlotID: testSlotID, IsRegistered: tt.registered}, got)
		})
	}
}

func TestAvailabilityController_Schedule(t *testing.T) {
	svc := &fakeAvailabilityService{schedule: []domain.ScheduleEntry{
		{Slot: &domain.Slot{ID: testSlotID, Title: "Opening keynote"}, RoomName: "Main Hall"},
	}}
	ctrl := NewAvailabilityController(testLogger(), svc)

	rr := serve("GET /events/{eventID}/schedule", ctrl.Schedule,
		httptest.NewRequest(http.MethodGet, "/events/"+testEventID+"/schedule", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []domain.ScheduleEntry
	require.Nil(t, decodeEnvelope(t, rr, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Main Hall", got[0].RoomName)
}

func TestAvailabilityController_ScheduleInvalidEvent(t *testing.T) {
	ctrl := NewAvailabilityController(testLogger(), &fakeAvailabilityService{})

	rr := serve("GET /events/{eventID}/schedule", ctrl.Schedule,
		httptest.NewRequest(http.MethodGet, "/events/devfest/schedule", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
