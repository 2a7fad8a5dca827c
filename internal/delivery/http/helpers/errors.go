package helpers

import (
	"errors"
	"net/http"

	"slotbooking/internal/domain"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// errorMappings is checked in order; the first sentinel matched with errors.Is wins.
var errorMappings = []errorMapping{
	{domain.ErrSlotFull, http.StatusConflict, ErrCodeSlotFull, "Sold Out"},
	{domain.ErrSlotNotBookable, http.StatusUnprocessableEntity, ErrCodeSlotNotBookable, "slot is not bookable"},
	{domain.ErrSlotLocked, http.StatusConflict, ErrCodeSlotLocked, "capacity cannot drop below registrations"},
	{domain.ErrNotRegistered, http.StatusNotFound, ErrCodeNotRegistered, "no active registration for this slot"},
	{domain.ErrInvalidCheckInWindow, http.StatusUnprocessableEntity, ErrCodeInvalidCheckInWindow, "check-in is not open for this slot"},
	{domain.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition, "reservation cannot make this transition"},
	{domain.ErrInvalidBadge, http.StatusUnprocessableEntity, ErrCodeInvalidBadge, "badge could not be verified"},
	{domain.ErrContention, http.StatusServiceUnavailable, ErrCodeContention, "try again"},
	{domain.ErrTimeout, http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out"},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound, "not found"},
	{domain.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound, "user not found"},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "forbidden"},
	{domain.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest, ""},
}

// StatusForError maps a service error to an HTTP status, error code and client message.
// Unknown errors are 500 internal_error.
func StatusForError(err error) (status int, code, message string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError, "internal error"
}

// WriteServiceError writes err using StatusForError.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code, message := StatusForError(err)
	WriteJSONError(w, status, code, message)
}
