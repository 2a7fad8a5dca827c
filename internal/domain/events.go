package domain

import (
	"context"
	"time"
)

// Domain event types emitted by the booking core.
const (
	EventReservationCreated    = "reservation.created"
	EventReservationCancelled  = "reservation.cancelled"
	EventReservationCheckedIn  = "reservation.checked_in"
	EventReservationCheckedOut = "reservation.checked_out"
	EventReservationNoShow     = "reservation.no_show"
)

// ReservationEvent is published after a reservation transition commits.
type ReservationEvent struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	ReservationID string            `json:"reservation_id"`
	UserID        string            `json:"user_id"`
	SlotID        string            `json:"slot_id"`
	EventID       string            `json:"event_id"`
	SlotTitle     string            `json:"slot_title"`
	StartsAt      time.Time         `json:"starts_at"`
	Status        ReservationStatus `json:"status"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// EventPublisher is fire-and-forget from the caller's perspective: Publish must not block on delivery.
type EventPublisher interface {
	Publish(ctx context.Context, ev ReservationEvent)
}

// EventSink delivers one event to a downstream system (broker, mailer).
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, ev ReservationEvent) error
}
