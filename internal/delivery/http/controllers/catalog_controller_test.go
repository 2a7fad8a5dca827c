package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogController_CreateRoom(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{"created", `{"name":" Main Hall ","ceiling":120}`, nil, http.StatusCreated},
		{"missing name", `{"ceiling":120}`, nil, http.StatusBadRequest},
		{"negative ceiling", `{"name":"A","ceiling":-1}`, nil, http.StatusBadRequest},
		{"service rejects", `{"name":"A"}`, domain.ErrInvalidInput, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCatalogService{err: tt.svcErr}
			ctrl := NewCatalogController(testLogger(), svc)
			req := httptest.NewRequest(http.MethodPost, "/events/"+testEventID+"/rooms", strings.NewReader(tt.body))

			rr := serve("POST /events/{eventID}/rooms", ctrl.CreateRoom, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var got domain.Room
			require.Nil(t, decodeEnvelope(t, rr, &got))
			assert.Equal(t, testRoomID, got.ID)
			assert.Equal(t, "Main Hall", svc.createdRoom.Name)
			assert.Equal(t, testEventID, svc.createdRoom.EventID)
			assert.Equal(t, 120, svc.createdRoom.Ceiling)
		})
	}
}

func TestCatalogController_UpdateRoom(t *testing.T) {
	svc := &fakeCatalogService{room: &domain.Room{ID: testRoomID, Ceiling: 60}}
	ctrl := NewCatalogController(testLogger(), svc)
	req := httptest.NewRequest(http.MethodPatch, "/rooms/"+testRoomID, strings.NewReader(`{"ceiling":60}`))

	rr := serve("PATCH /rooms/{roomID}", ctrl.UpdateRoom, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.gotCeiling)
	assert.Equal(t, 60, *svc.gotCeiling)

	rr = serve("PATCH /rooms/{roomID}", ctrl.UpdateRoom,
		httptest.NewRequest(http.MethodPatch, "/rooms/"+testRoomID, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCatalogController_CreateSlot(t *testing.T) {
	valid := `{"room_id":"` + testRoomID + `","title":"Go at scale","type":"talk",` +
		`"start_time":"2026-06-01T10:00:00Z","end_time":"2026-06-01T10:45:00Z","max_capacity":80}`

	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{"created", valid, nil, http.StatusCreated},
		{"bad type", strings.Replace(valid, `"talk"`, `"party"`, 1), nil, http.StatusBadRequest},
		{"end before start", strings.Replace(valid, "10:45", "09:45", 1), nil, http.StatusBadRequest},
		{"room id not uuid", strings.Replace(valid, testRoomID, "room-1", 1), nil, http.StatusBadRequest},
		{"room missing", valid, domain.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCatalogService{err: tt.svcErr}
			ctrl := NewCatalogController(testLogger(), svc)
			req := httptest.NewRequest(http.MethodPost, "/events/"+testEventID+"/slots", strings.NewReader(tt.body))

			rr := serve("POST /events/{eventID}/slots", ctrl.CreateSlot, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, domain.SlotTypeTalk, svc.createdSlot.Type)
				assert.Equal(t, 80, svc.createdSlot.MaxCapacity)
				assert.Equal(t, testEventID, svc.createdSlot.EventID)
			}
		})
	}
}

func TestCatalogController_SetSlotCapacity(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"raised", `{"max_capacity":90}`, nil, http.StatusOK, ""},
		{"zero is allowed", `{"max_capacity":0}`, nil, http.StatusOK, ""},
		{"missing field", `{}`, nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"below registrations", `{"max_capacity":10}`, domain.ErrSlotLocked, http.StatusConflict, helpers.ErrCodeSlotLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCatalogService{err: tt.svcErr, slot: &domain.Slot{ID: testSlotID}}
			ctrl := NewCatalogController(testLogger(), svc)
			req := httptest.NewRequest(http.MethodPatch, "/slots/"+testSlotID+"/capacity", strings.NewReader(tt.body))

			rr := serve("PATCH /slots/{slotID}/capacity", ctrl.SetSlotCapacity, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				apiErr := decodeEnvelope(t, rr, nil)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
			}
		})
	}
}

func TestCatalogController_ImportSessionize(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
	}{
		{"imported", nil, http.StatusOK},
		{"unknown sessionize event", domain.ErrNotFound, http.StatusNotFound},
		{"upstream failure", errors.New("sessionize: status 502"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCatalogService{err: tt.svcErr, summary: domain.ImportSummary{Rooms: 3, Slots: 21}}
			ctrl := NewCatalogController(testLogger(), svc)
			req := httptest.NewRequest(http.MethodPost, "/events/"+testEventID+"/import/sessionize/ab12cd34", nil)

			rr := serve("POST /events/{eventID}/import/sessionize/{sessionizeID}", ctrl.ImportSessionize, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "ab12cd34", svc.gotSessionID)
			if tt.wantStatus == http.StatusOK {
				var got domain.ImportSummary
				require.Nil(t, decodeEnvelope(t, rr, &got))
				assert.Equal(t, domain.ImportSummary{Rooms: 3, Slots: 21}, got)
			}
		})
	}
}
