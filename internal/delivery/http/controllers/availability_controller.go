package controllers

import (
	"log/slog"
	"net/http"

	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/delivery/http/middleware"
	"slotbooking/internal/domain"
)

type AvailabilityController struct {
	Logger  *slog.Logger
	Service domain.AvailabilityService
}

func NewAvailabilityController(logger *slog.Logger, svc domain.AvailabilityService) *AvailabilityController {
	return &AvailabilityController{
		Logger:  logger,
		Service: svc,
	}
}

// RegistrationStatus is the data payload for GET /slots/{slotID}/registration.
type RegistrationStatus struct {
	SlotID       string `json:"slot_id"`
	IsRegistered bool   `json:"is_registered"`
}

// Availability godoc
// @Summary Seats left in a slot
// @Description Read-model view of a slot's seats. Advisory only; registration is decided by the ledger.
// @Tags availability
// @Produce json
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=domain.Availability}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /slots/{slotID}/availability [get]
func (c *AvailabilityController) Availability(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotID")
	if !ok {
		return
	}
	a, err := c.Service.AvailableSeats(r.Context(), slotID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// Registration godoc
// @Summary Whether the current user is registered for a slot
// @Tags availability
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.RegistrationStatus}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /slots/{slotID}/registration [get]
func (c *AvailabilityController) Registration(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	registered, err := c.Service.IsRegistered(r.Context(), userID, slotID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RegistrationStatus{SlotID: slotID, IsRegistered: registered})
}

// Schedule godoc
// @Summary Event schedule with live seat counts
// @Description Slots of the event ordered by start time, each with its availability. May lag the ledger by the cache TTL.
// @Tags availability
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.ScheduleEntry}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events/{eventID}/schedule [get]
func (c *AvailabilityController) Schedule(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	entries, err := c.Service.ScheduleFor(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ScheduleEntry{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, entries)
}
