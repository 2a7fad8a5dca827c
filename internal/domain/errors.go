package domain

import "errors"

// Sentinel errors shared by services, repositories and controllers.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlotFull is produced only by the capacity ledger's atomic reserve.
	ErrSlotFull = errors.New("slot is full")
	// ErrSlotNotBookable is returned for breaks, closed rooms and slots that already ended.
	ErrSlotNotBookable = errors.New("slot is not bookable")
	// ErrSlotLocked is returned when a catalog change would violate registrations already taken.
	ErrSlotLocked = errors.New("slot has registrations")

	ErrNotRegistered        = errors.New("not registered")
	ErrInvalidTransition    = errors.New("invalid reservation transition")
	ErrInvalidCheckInWindow = errors.New("check-in is outside the slot window")
	ErrInvalidBadge         = errors.New("invalid badge")

	// ErrContention marks transient lock or serialization failures; safe to retry.
	ErrContention = errors.New("booking contention, try again")
	// ErrTimeout is returned when a booking call exceeds its deadline.
	ErrTimeout = errors.New("booking timed out")

	// ErrDuplicateReservation is raised by stores when the (slot, user) unique index rejects an insert.
	ErrDuplicateReservation = errors.New("duplicate active reservation")
)
