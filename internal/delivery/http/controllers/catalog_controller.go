package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/domain"

	"github.com/google/uuid"
)

type CatalogController struct {
	Logger  *slog.Logger
	Service domain.CatalogService
}

func NewCatalogController(logger *slog.Logger, svc domain.CatalogService) *CatalogController {
	return &CatalogController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateRoomRequest is the request body for POST /events/{eventID}/rooms.
type CreateRoomRequest struct {
	Name        string `json:"name"`
	Ceiling     int    `json:"ceiling"`
	NotBookable bool   `json:"not_bookable"`
}

// Validate implements helpers.Validator.
func (req *CreateRoomRequest) Validate() []string {
	var errs []string
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errs = append(errs, "name is required")
	}
	if req.Ceiling < 0 {
		errs = append(errs, "ceiling must be zero or positive")
	}
	return errs
}

// CreateRoom godoc
// @Summary Create a room
// @Description Adds a room to the event. A ceiling of 0 means the room imposes no seat limit.
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.CreateRoomRequest true "Room"
// @Success 201 {object} helpers.APIResponse{data=domain.Room}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events/{eventID}/rooms [post]
func (c *CatalogController) CreateRoom(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateRoomRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	room := domain.NewRoom(eventID, req.Name, req.Ceiling, time.Time{}, time.Time{})
	room.NotBookable = req.NotBookable
	if err := c.Service.CreateRoom(r.Context(), room); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, room)
}

// UpdateRoomRequest is the request body for PATCH /rooms/{roomID}. Omitted fields are unchanged.
type UpdateRoomRequest struct {
	Name        *string `json:"name"`
	Ceiling     *int    `json:"ceiling"`
	NotBookable *bool   `json:"not_bookable"`
}

// Validate implements helpers.Validator.
func (req *UpdateRoomRequest) Validate() []string {
	if req.Name == nil && req.Ceiling == nil && req.NotBookable == nil {
		return []string{"at least one of name, ceiling, not_bookable is required"}
	}
	var errs []string
	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		req.Name = &n
		if n == "" {
			errs = append(errs, "name must not be empty")
		}
	}
	if req.Ceiling != nil && *req.Ceiling < 0 {
		errs = append(errs, "ceiling must be zero or positive")
	}
	return errs
}

// UpdateRoom godoc
// @Summary Update a room
// @Description Changes the name, ceiling or bookable flag of a room. Lowering the ceiling never revokes seats already taken.
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roomID path string true "Room ID (UUID)"
// @Param body body controllers.UpdateRoomRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse{data=domain.Room}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /rooms/{roomID} [patch]
func (c *CatalogController) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathUUID(w, r, "roomID")
	if !ok {
		return
	}
	var req UpdateRoomRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	room, err := c.Service.UpdateRoom(r.Context(), roomID, req.Name, req.Ceiling, req.NotBookable)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, room)
}

// CreateSlotRequest is the request body for POST /events/{eventID}/slots.
type CreateSlotRequest struct {
	RoomID      string    `json:"room_id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxCapacity int       `json:"max_capacity"`
}

// Validate implements helpers.Validator.
func (req *CreateSlotRequest) Validate() []string {
	var errs []string
	if uuid.Validate(req.RoomID) != nil {
		errs = append(errs, "room_id must be a UUID")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		errs = append(errs, "title is required")
	}
	if !domain.SlotType(req.Type).Valid() {
		errs = append(errs, "type must be one of keynote, talk, workshop, break")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		errs = append(errs, "start_time and end_time are required")
	} else if !req.EndTime.After(req.StartTime) {
		errs = append(errs, "end_time must be after start_time")
	}
	if req.MaxCapacity < 0 {
		errs = append(errs, "max_capacity must be zero or positive")
	}
	return errs
}

// CreateSlot godoc
// @Summary Create a slot
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.CreateSlotRequest true "Slot"
// @Success 201 {object} helpers.APIResponse{data=domain.Slot}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/slots [post]
func (c *CatalogController) CreateSlot(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateSlotRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	slot := domain.NewSlot(eventID, req.RoomID, req.Title, domain.SlotType(req.Type),
		req.StartTime.UTC(), req.EndTime.UTC(), req.MaxCapacity, time.Time{}, time.Time{})
	if err := c.Service.CreateSlot(r.Context(), slot); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, slot)
}

// SetCapacityRequest is the request body for PATCH /slots/{slotID}/capacity.
type SetCapacityRequest struct {
	MaxCapacity *int `json:"max_capacity"`
}

// Validate implements helpers.Validator.
func (req *SetCapacityRequest) Validate() []string {
	if req.MaxCapacity == nil {
		return []string{"max_capacity is required"}
	}
	if *req.MaxCapacity < 0 {
		return []string{"max_capacity must be zero or positive"}
	}
	return nil
}

// SetSlotCapacity godoc
// @Summary Change a slot's max capacity
// @Description Rejected with slot_locked when the new value is below the seats taken, or lowers a slot that already has registrations.
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Param body body controllers.SetCapacityRequest true "New capacity"
// @Success 200 {object} helpers.APIResponse{data=domain.Slot}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: slot_locked"
// @Router /slots/{slotID}/capacity [patch]
func (c *CatalogController) SetSlotCapacity(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotID")
	if !ok {
		return
	}
	var req SetCapacityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	slot, err := c.Service.SetSlotCapacity(r.Context(), slotID, *req.MaxCapacity)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, slot)
}

// ImportSessionize godoc
// @Summary Import rooms and sessions from Sessionize
// @Description Upserts the rooms and sessions of a Sessionize event. Slots that already have registrations are left unchanged.
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param sessionizeID path string true "Sessionize event ID"
// @Success 200 {object} helpers.APIResponse{data=domain.ImportSummary}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/import/sessionize/{sessionizeID} [post]
func (c *CatalogController) ImportSessionize(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	sessionizeID := strings.TrimSpace(r.PathValue("sessionizeID"))
	if sessionizeID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionizeID")
		return
	}
	summary, err := c.Service.ImportSessionize(r.Context(), eventID, sessionizeID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, summary)
}
