package memory

import (
	"context"
	"errors"
	"sort"

	"slotbooking/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.ID = uuid.NewString()
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *Store) UpsertRoomBySessionizeID(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if existing.EventID == room.EventID && existing.SessionizeRoomID == room.SessionizeRoomID {
			existing.Name = room.Name
			existing.UpdatedAt = room.UpdatedAt
			room.ID = existing.ID
			room.Ceiling = existing.Ceiling
			room.NotBookable = existing.NotBookable
			return nil
		}
	}
	room.ID = uuid.NewString()
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *Store) GetRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *Store) UpdateRoom(ctx context.Context, roomID string, name *string, ceiling *int, notBookable *bool) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if name != nil {
		room.Name = *name
	}
	if ceiling != nil {
		room.Ceiling = *ceiling
	}
	if notBookable != nil {
		room.NotBookable = *notBookable
	}
	cp := *room
	return &cp, nil
}

func (s *Store) CreateSlot(ctx context.Context, slot *domain.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[slot.RoomID]; !ok {
		return domain.ErrNotFound
	}
	slot.ID = uuid.NewString()
	slot.SeatsTaken = 0
	cp := *slot
	s.slots[slot.ID] = &cp
	return nil
}

func (s *Store) UpsertSlotBySessionizeID(ctx context.Context, slot *domain.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.slots {
		if existing.EventID != slot.EventID || existing.SessionizeSessionID != slot.SessionizeSessionID {
			continue
		}
		slot.ID = existing.ID
		slot.SeatsTaken = existing.SeatsTaken
		if existing.SeatsTaken > 0 {
			return nil
		}
		existing.RoomID = slot.RoomID
		existing.Title = slot.Title
		existing.Type = slot.Type
		existing.StartTime = slot.StartTime
		existing.EndTime = slot.EndTime
		existing.UpdatedAt = slot.UpdatedAt
		return nil
	}
	slot.ID = uuid.NewString()
	slot.SeatsTaken = 0
	cp := *slot
	s.slots[slot.ID] = &cp
	return nil
}

func (s *Store) GetSlotWithRoom(ctx context.Context, slotID string) (*domain.SlotWithRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotWithRoom(slotID)
}

func (s *Store) SetSlotCapacity(ctx context.Context, slotID string, maxCapacity int) (*domain.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if maxCapacity < slot.SeatsTaken || (slot.SeatsTaken > 0 && maxCapacity < slot.MaxCapacity) {
		return nil, domain.ErrSlotLocked
	}
	slot.MaxCapacity = maxCapacity
	cp := *slot
	return &cp, nil
}

func (s *Store) ListSlotsByEventID(ctx context.Context, eventID string) ([]*domain.SlotWithRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.SlotWithRoom, 0)
	for id, slot := range s.slots {
		if slot.EventID != eventID {
			continue
		}
		sr, err := s.slotWithRoom(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Slot.StartTime.Equal(out[j].Slot.StartTime) {
			return out[i].Slot.StartTime.Before(out[j].Slot.StartTime)
		}
		return out[i].Room.Name < out[j].Room.Name
	})
	return out, nil
}

func (s *Store) ListSlotsByIDs(ctx context.Context, slotIDs []string) ([]*domain.SlotWithRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.SlotWithRoom, 0, len(slotIDs))
	for _, id := range slotIDs {
		sr, err := s.slotWithRoom(id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}
