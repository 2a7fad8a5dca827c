package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/delivery/http/middleware"
	"slotbooking/internal/domain"
)

type BookingController struct {
	Logger  *slog.Logger
	Service domain.BookingService
}

func NewBookingController(logger *slog.Logger, svc domain.BookingService) *BookingController {
	return &BookingController{
		Logger:  logger,
		Service: svc,
	}
}

// ReservationSuccessResponse is the success envelope for reservation endpoints.
type ReservationSuccessResponse struct {
	Data  *domain.Reservation `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// Register godoc
// @Summary Register the current user for a slot
// @Description Takes one seat of the slot for the authenticated user. Idempotent: returns 201 when a new reservation is created, 200 when the user already holds one.
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse "Already registered"
// @Success 201 {object} controllers.ReservationSuccessResponse "Reservation created"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: slot_full"
// @Failure 422 {object} helpers.APIResponse "error.code: slot_not_bookable"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 503 {object} helpers.APIResponse "error.code: contention"
// @Failure 504 {object} helpers.APIResponse "error.code: timeout"
// @Router /slots/{slotID}/register [post]
func (c *BookingController) Register(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	res, created, err := c.Service.Register(r.Context(), userID, slotID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if created {
		helpers.WriteJSONSuccess(w, http.StatusCreated, res)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// Cancel godoc
// @Summary Cancel the current user's registration for a slot
// @Description Releases the seat held by the authenticated user.
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_registered"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /slots/{slotID}/register [delete]
func (c *BookingController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.simpleTransition(w, r, c.Service.Cancel)
}

// CheckInRequest is the request body for POST /slots/{slotID}/check-in.
type CheckInRequest struct {
	BadgeRef string `json:"badge_ref"`
}

// Validate implements helpers.Validator.
func (req *CheckInRequest) Validate() []string {
	req.BadgeRef = strings.TrimSpace(req.BadgeRef)
	if req.BadgeRef == "" {
		return []string{"badge_ref is required"}
	}
	if len(req.BadgeRef) > 256 {
		return []string{"badge_ref must be at most 256 characters"}
	}
	return nil
}

// CheckIn godoc
// @Summary Check in to a slot
// @Description Verifies the badge and marks the reservation checked in. Accepted from the grace period before start until the slot ends.
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Param body body controllers.CheckInRequest true "Badge reference"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_registered"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_check_in_window or invalid_badge"
// @Router /slots/{slotID}/check-in [post]
func (c *BookingController) CheckIn(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CheckInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.Service.CheckIn(r.Context(), userID, slotID, req.BadgeRef)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// CheckOut godoc
// @Summary Check out of a slot
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_registered"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /slots/{slotID}/check-out [post]
func (c *BookingController) CheckOut(w http.ResponseWriter, r *http.Request) {
	c.simpleTransition(w, r, c.Service.CheckOut)
}

type transitionFunc func(ctx context.Context, userID, slotID string) (*domain.Reservation, error)

func (c *BookingController) simpleTransition(w http.ResponseWriter, r *http.Request, op transitionFunc) {
	slotID, ok := pathUUID(w, r, "slotID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	res, err := op(r.Context(), userID, slotID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// MyReservationsResponse is the data payload for GET /me/reservations.
type MyReservationsResponse struct {
	Items      []*domain.Reservation  `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListMyReservations godoc
// @Summary List the current user's reservations
// @Description Returns every reservation of the authenticated user, newest first, including cancelled ones.
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse{data=controllers.MyReservationsResponse}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/reservations [get]
func (c *BookingController) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	params := helpers.ParsePagination(r)
	items, total, err := c.Service.ListMyReservations(r.Context(), userID, params)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if items == nil {
		items = []*domain.Reservation{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MyReservationsResponse{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}
