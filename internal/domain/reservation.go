package domain

import (
	"context"
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

// A reservation that does not exist is in the implicit NONE state.
const (
	StatusRegistered ReservationStatus = "registered"
	StatusCancelled  ReservationStatus = "cancelled"
	StatusCheckedIn  ReservationStatus = "checked_in"
	StatusCheckedOut ReservationStatus = "checked_out"
	StatusNoShow     ReservationStatus = "no_show"
)

var transitions = map[ReservationStatus][]ReservationStatus{
	StatusRegistered: {StatusCancelled, StatusCheckedIn, StatusNoShow},
	StatusCheckedIn:  {StatusCheckedOut},
}

// CanTransition reports whether moving from s to next is allowed.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ReservationStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// HoldsSeat reports whether a reservation in this state occupies a seat of the slot.
func (s ReservationStatus) HoldsSeat() bool {
	return s != StatusCancelled
}

// Attending reports whether the user counts as registered for the slot.
func (s ReservationStatus) Attending() bool {
	return s == StatusRegistered || s == StatusCheckedIn || s == StatusCheckedOut
}

// Reservation links a user to a slot.
// swagger:model Reservation
type Reservation struct {
	ID           string            `json:"id"`
	SlotID       string            `json:"slot_id"`
	UserID       string            `json:"user_id"`
	Status       ReservationStatus `json:"status"`
	BadgeRef     string            `json:"badge_ref,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CheckedInAt  *time.Time        `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time        `json:"checked_out_at,omitempty"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
}

// NewReservation returns a REGISTERED reservation. ID is typically set by the store on create.
func NewReservation(slotID, userID string, now time.Time) *Reservation {
	return &Reservation{
		SlotID:    slotID,
		UserID:    userID,
		Status:    StatusRegistered,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the reservation to next, stamping the matching timestamp.
// It returns ErrInvalidTransition when the state machine forbids the move.
func (r *Reservation) Transition(next ReservationStatus, now time.Time) error {
	if !r.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	r.UpdatedAt = now
	switch next {
	case StatusCheckedIn:
		r.CheckedInAt = &now
	case StatusCheckedOut:
		r.CheckedOutAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
	}
	return nil
}

// CheckInWindow returns the interval [start-grace, end] in which check-in is accepted.
func CheckInWindow(slot *Slot, grace time.Duration) (from, to time.Time) {
	return slot.StartTime.Add(-grace), slot.EndTime
}

// WithinCheckInWindow reports whether now is inside the check-in window of slot.
func WithinCheckInWindow(slot *Slot, grace time.Duration, now time.Time) bool {
	from, to := CheckInWindow(slot, grace)
	return !now.Before(from) && !now.After(to)
}

// ReservationRepository covers read-side queries and the no-show sweep.
type ReservationRepository interface {
	GetActiveByUserAndSlot(ctx context.Context, userID, slotID string) (*Reservation, error)
	ListByUserID(ctx context.Context, userID string, params PaginationParams) ([]*Reservation, int, error)
	// MarkNoShows moves every REGISTERED reservation of a slot that ended before now to NO_SHOW
	// and returns the reservations it changed.
	MarkNoShows(ctx context.Context, now time.Time) ([]*Reservation, error)
}
