package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/delivery/http/middleware"
	"slotbooking/internal/domain"

	"github.com/stretchr/testify/require"
)

const (
	testSlotID  = "5f1c8f7e-1d2a-4c3b-9e8f-0a1b2c3d4e5f"
	testEventID = "0d9e8f7a-6b5c-4d3e-8f2a-1b0c9d8e7f6a"
	testRoomID  = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// withUser authenticates req as userID.
func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), domain.Principal{UserID: userID}))
}

// serve routes req through a mux so path values are populated.
func serve(pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var env struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

type fakeBookingService struct {
	res     *domain.Reservation
	created bool
	err     error
	items   []*domain.Reservation
	total   int

	gotUserID string
	gotSlotID string
	gotBadge  string
	gotParams domain.PaginationParams
}

func (f *fakeBookingService) Register(_ context.Context, userID, slotID string) (*domain.Reservation, bool, error) {
	f.gotUserID, f.gotSlotID = userID, slotID
	return f.res, f.created, f.err
}

func (f *fakeBookingService) Cancel(_ context.Context, userID, slotID string) (*domain.Reservation, error) {
	f.gotUserID, f.gotSlotID = userID, slotID
	return f.res, f.err
}

func (f *fakeBookingService) CheckIn(_ context.Context, userID, slotID, badgeRef string) (*domain.Reservation, error) {
	f.gotUserID, f.gotSlotID, f.gotBadge = userID, slotID, badgeRef
	return f.res, f.err
}

func (f *fakeBookingService) CheckOut(_ context.Context, userID, slotID string) (*domain.Reservation, error) {
	f.gotUserID, f.gotSlotID = userID, slotID
	return f.res, f.err
}

func (f *fakeBookingService) ListMyReservations(_ context.Context, userID string, params domain.PaginationParams) ([]*domain.Reservation, int, error) {
	f.gotUserID, f.gotParams = userID, params
	return f.items, f.total, f.err
}

type fakeAvailabilityService struct {
	availability domain.Availability
	registered   bool
	schedule     []domain.ScheduleEntry
	err          error
}

func (f *fakeAvailabilityService) AvailableSeats(context.Context, string) (domain.Availability, error) {
	return f.availability, f.err
}

func (f *fakeAvailabilityService) IsRegistered(context.Context, string, string) (bool, error) {
	return f.registered, f.err
}

func (f *fakeAvailabilityService) ScheduleFor(context.Context, string) ([]domain.ScheduleEntry, error) {
	return f.schedule, f.err
}

type fakeCatalogService struct {
	err     error
	room    *domain.Room
	slot    *domain.Slot
	summary domain.ImportSummary

	createdRoom  *domain.Room
	createdSlot  *domain.Slot
	gotCeiling   *int
	gotCapacity  int
	gotSessionID string
}

func (f *fakeCatalogService) CreateRoom(_ context.Context, room *domain.Room) error {
	f.createdRoom = room
	if f.err == nil {
		room.ID = testRoomID
	}
	return f.err
}

func (f *fakeCatalogService) UpdateRoom(_ context.Context, _ string, _ *string, ceiling *int, _ *bool) (*domain.Room, error) {
	f.gotCeiling = ceiling
	return f.room, f.err
}

func (f *fakeCatalogService) CreateSlot(_ context.Context, slot *domain.Slot) error {
	f.createdSlot = slot
	return f.err
}

func (f *fakeCatalogService) SetSlotCapacity(_ context.Context, _ string, maxCapacity int) (*domain.Slot, error) {
	f.gotCapacity = maxCapacity
	return f.slot, f.err
}

func (f *fakeCatalogService) ImportSessionize(_ context.Context, _, sessionizeID string) (domain.ImportSummary, error) {
	f.gotSessionID = sessionizeID
	return f.summary, f.err
}
