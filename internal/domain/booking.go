package domain

import (
	"context"
	"time"
)

// BookingTx is the set of operations available inside one booking transaction.
// Everything done through a BookingTx commits or rolls back together.
type BookingTx interface {
	CapacityLedger
	GetSlotWithRoom(ctx context.Context, slotID string) (*SlotWithRoom, error)
	// GetActiveReservation returns the non-cancelled reservation of the user for the slot, locked
	// for update, or ErrNotFound.
	GetActiveReservation(ctx context.Context, userID, slotID string) (*Reservation, error)
	// InsertReservation returns ErrDuplicateReservation when an active reservation already exists.
	InsertReservation(ctx context.Context, res *Reservation) error
	UpdateReservation(ctx context.Context, res *Reservation) error
}

// BookingStore runs booking transactions. Implementations map transient lock failures to ErrContention.
type BookingStore interface {
	WithinTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// BadgeVerifier delegates badge authenticity to the badge/QR system.
type BadgeVerifier interface {
	Verify(ctx context.Context, userID, badgeRef string) error
}

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time

// BookingService is the public booking contract.
type BookingService interface {
	// Register returns (reservation, created, err). created is false when the user already held
	// an active reservation for the slot; that case is not an error.
	Register(ctx context.Context, userID, slotID string) (*Reservation, bool, error)
	Cancel(ctx context.Context, userID, slotID string) (*Reservation, error)
	CheckIn(ctx context.Context, userID, slotID, badgeRef string) (*Reservation, error)
	CheckOut(ctx context.Context, userID, slotID string) (*Reservation, error)
	ListMyReservations(ctx context.Context, userID string, params PaginationParams) ([]*Reservation, int, error)
}

// Availability is the read-model view of a slot's seats.
// swagger:model Availability
type Availability struct {
	SlotID            string `json:"slot_id"`
	EffectiveCapacity int    `json:"effective_capacity"`
	SeatsTaken        int    `json:"seats_taken"`
	Available         int    `json:"available"`
	SoldOut           bool   `json:"sold_out"`
	AlmostFull        bool   `json:"almost_full"`
	Bookable          bool   `json:"bookable"`
}

// NewAvailability derives an Availability from a slot row. almostFullRatio is the share of
// effective capacity at or below which remaining seats flag the slot as almost full.
func NewAvailability(s SlotWithRoom, almostFullRatio float64, now time.Time) Availability {
	capacity := s.EffectiveCapacity()
	available := capacity - s.Slot.SeatsTaken
	if available < 0 {
		available = 0
	}
	a := Availability{
		SlotID:            s.Slot.ID,
		EffectiveCapacity: capacity,
		SeatsTaken:        s.Slot.SeatsTaken,
		Available:         available,
		SoldOut:           available == 0,
		Bookable:          s.CheckBookable(now) == nil,
	}
	if !a.SoldOut && capacity > 0 && float64(available) <= float64(capacity)*almostFullRatio {
		a.AlmostFull = true
	}
	return a
}

// ScheduleEntry is one slot of an event schedule with its live counts.
// swagger:model ScheduleEntry
type ScheduleEntry struct {
	Slot         *Slot        `json:"slot"`
	RoomName     string       `json:"room_name"`
	Availability Availability `json:"availability"`
}

// AvailabilityService is the read model. It is never the authority used to grant a seat.
type AvailabilityService interface {
	AvailableSeats(ctx context.Context, slotID string) (Availability, error)
	IsRegistered(ctx context.Context, userID, slotID string) (bool, error)
	ScheduleFor(ctx context.Context, eventID string) ([]ScheduleEntry, error)
}

// ScheduleCache stores rendered schedules. Misses return (nil, false, nil).
type ScheduleCache interface {
	Get(ctx context.Context, eventID string) ([]ScheduleEntry, bool, error)
	Set(ctx context.Context, eventID string, entries []ScheduleEntry) error
	Invalidate(ctx context.Context, eventID string) error
}
