package domain

import (
	"context"
	"time"
)

// SlotType classifies a slot. Breaks are never bookable.
type SlotType string

const (
	SlotTypeKeynote  SlotType = "keynote"
	SlotTypeTalk     SlotType = "talk"
	SlotTypeWorkshop SlotType = "workshop"
	SlotTypeBreak    SlotType = "break"
)

// Valid reports whether t is a known slot type.
func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeKeynote, SlotTypeTalk, SlotTypeWorkshop, SlotTypeBreak:
		return true
	}
	return false
}

// Room is a physical room of an event. Ceiling is the hard seat limit; 0 means no room limit.
// swagger:model Room
type Room struct {
	ID               string    `json:"id"`
	EventID          string    `json:"event_id"`
	Name             string    `json:"name"`
	Ceiling          int       `json:"ceiling"`
	NotBookable      bool      `json:"not_bookable"`
	SessionizeRoomID int       `json:"sessionize_room_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewRoom returns a new Room with the given fields. ID is typically set by the repository on create.
func NewRoom(eventID, name string, ceiling int, createdAt, updatedAt time.Time) *Room {
	return &Room{
		EventID:   eventID,
		Name:      name,
		Ceiling:   ceiling,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Slot is a bookable time window in a room. SeatsTaken is the capacity counter kept by the ledger.
// swagger:model Slot
type Slot struct {
	ID                  string    `json:"id"`
	EventID             string    `json:"event_id"`
	RoomID              string    `json:"room_id"`
	Title               string    `json:"title"`
	Type                SlotType  `json:"type"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	MaxCapacity         int       `json:"max_capacity"`
	SeatsTaken          int       `json:"seats_taken"`
	SessionizeSessionID string    `json:"sessionize_session_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewSlot returns a new Slot with the given fields. ID is typically set by the repository on create.
func NewSlot(eventID, roomID, title string, slotType SlotType, startTime, endTime time.Time, maxCapacity int, createdAt, updatedAt time.Time) *Slot {
	return &Slot{
		EventID:     eventID,
		RoomID:      roomID,
		Title:       title,
		Type:        slotType,
		StartTime:   startTime,
		EndTime:     endTime,
		MaxCapacity: maxCapacity,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// EffectiveCapacity returns min(maxCapacity, ceiling). A ceiling of 0 or less means the room
// imposes no limit. The result is never negative.
func EffectiveCapacity(maxCapacity, ceiling int) int {
	c := maxCapacity
	if ceiling > 0 && ceiling < c {
		c = ceiling
	}
	if c < 0 {
		return 0
	}
	return c
}

// SlotWithRoom bundles a slot with its room so callers can evaluate bookability and capacity.
type SlotWithRoom struct {
	Slot *Slot
	Room *Room
}

// EffectiveCapacity of the slot in its room.
func (s SlotWithRoom) EffectiveCapacity() int {
	return EffectiveCapacity(s.Slot.MaxCapacity, s.Room.Ceiling)
}

// CheckBookable returns ErrSlotNotBookable for breaks, rooms flagged not bookable and slots
// that already ended at now.
func (s SlotWithRoom) CheckBookable(now time.Time) error {
	if s.Slot.Type == SlotTypeBreak || s.Room.NotBookable {
		return ErrSlotNotBookable
	}
	if !now.Before(s.Slot.EndTime) {
		return ErrSlotNotBookable
	}
	return nil
}

// CapacityLedger is the authoritative per-slot seat counter.
type CapacityLedger interface {
	// TryReserve atomically takes one seat if seats_taken < effective capacity and returns the
	// new seats_taken. It returns ErrSlotFull when no seat is left.
	TryReserve(ctx context.Context, slotID string) (int, error)
	// Release atomically gives one seat back. Never drops below zero.
	Release(ctx context.Context, slotID string) error
}

// SlotRepository defines storage for the slot catalog (rooms and slots).
type SlotRepository interface {
	CreateRoom(ctx context.Context, room *Room) error
	UpsertRoomBySessionizeID(ctx context.Context, room *Room) error
	GetRoomByID(ctx context.Context, roomID string) (*Room, error)
	UpdateRoom(ctx context.Context, roomID string, name *string, ceiling *int, notBookable *bool) (*Room, error)
	CreateSlot(ctx context.Context, slot *Slot) error
	// UpsertSlotBySessionizeID inserts or refreshes an imported slot; slots with seats taken are left unchanged.
	UpsertSlotBySessionizeID(ctx context.Context, slot *Slot) error
	GetSlotWithRoom(ctx context.Context, slotID string) (*SlotWithRoom, error)
	// SetSlotCapacity changes max_capacity in one conditional statement. It returns ErrSlotLocked
	// when the new value is below seats_taken, or lowers the capacity of a slot that has registrations.
	SetSlotCapacity(ctx context.Context, slotID string, maxCapacity int) (*Slot, error)
	ListSlotsByEventID(ctx context.Context, eventID string) ([]*SlotWithRoom, error)
	// ListSlotsByIDs returns the slots that exist among slotIDs, in no particular order.
	ListSlotsByIDs(ctx context.Context, slotIDs []string) ([]*SlotWithRoom, error)
}
