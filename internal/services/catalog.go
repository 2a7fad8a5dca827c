package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"slotbooking/internal/domain"
)

// sessionFormatCategory is the Sessionize category whose items classify sessions.
const sessionFormatCategory = "session format"

type catalogService struct {
	slots           domain.SlotRepository
	sessionize      domain.SessionFetcher
	cache           domain.ScheduleCache
	logger          *slog.Logger
	defaultCapacity int
	contextTimeout  time.Duration
}

func NewCatalogService(slots domain.SlotRepository, sessionize domain.SessionFetcher, cache domain.ScheduleCache, logger *slog.Logger, defaultCapacity int, timeout time.Duration) domain.CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{
		slots:           slots,
		sessionize:      sessionize,
		cache:           cache,
		logger:          logger,
		defaultCapacity: defaultCapacity,
		contextTimeout:  timeout,
	}
}

func (s *catalogService) CreateRoom(ctx context.Context, room *domain.Room) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if room.EventID == "" || strings.TrimSpace(room.Name) == "" || room.Ceiling < 0 {
		return domain.ErrInvalidInput
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	if err := s.slots.CreateRoom(ctx, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// UpdateRoom changes name, ceiling or the not-bookable flag. Lowering a ceiling below the seats
// already taken is allowed; the ledger then grants nothing until cancellations free seats.
func (s *catalogService) UpdateRoom(ctx context.Context, roomID string, name *string, ceiling *int, notBookable *bool) (*domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, domain.ErrInvalidInput
	}
	if ceiling != nil && *ceiling < 0 {
		return nil, domain.ErrInvalidInput
	}
	room, err := s.slots.UpdateRoom(ctx, roomID, name, ceiling, notBookable)
	if err != nil {
		return nil, err
	}
	invalidateSchedule(ctx, s.cache, s.logger, room.EventID)
	return room, nil
}

func (s *catalogService) CreateSlot(ctx context.Context, slot *domain.Slot) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if slot.EventID == "" || slot.RoomID == "" || strings.TrimSpace(slot.Title) == "" || !slot.Type.Valid() {
		return domain.ErrInvalidInput
	}
	if !slot.EndTime.After(slot.StartTime) || slot.MaxCapacity < 0 {
		return domain.ErrInvalidInput
	}
	room, err := s.slots.GetRoomByID(ctx, slot.RoomID)
	if err != nil {
		return err
	}
	if room.EventID != slot.EventID {
		return fmt.Errorf("%w: room belongs to another event", domain.ErrInvalidInput)
	}
	if room.Ceiling > 0 && slot.MaxCapacity > room.Ceiling {
		return fmt.Errorf("%w: max capacity exceeds room ceiling %d", domain.ErrInvalidInput, room.Ceiling)
	}
	now := time.Now()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	if err := s.slots.CreateSlot(ctx, slot); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	invalidateSchedule(ctx, s.cache, s.logger, slot.EventID)
	return nil
}

func (s *catalogService) SetSlotCapacity(ctx context.Context, slotID string, maxCapacity int) (*domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if maxCapacity < 0 {
		return nil, domain.ErrInvalidInput
	}
	sr, err := s.slots.GetSlotWithRoom(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if sr.Room.Ceiling > 0 && maxCapacity > sr.Room.Ceiling {
		return nil, fmt.Errorf("%w: max capacity exceeds room ceiling %d", domain.ErrInvalidInput, sr.Room.Ceiling)
	}
	slot, err := s.slots.SetSlotCapacity(ctx, slotID, maxCapacity)
	if err != nil {
		return nil, err
	}
	invalidateSchedule(ctx, s.cache, s.logger, slot.EventID)
	return slot, nil
}

// ImportSessionize upserts the rooms and sessions of a Sessionize event. Slots that already have
// registrations keep their current row.
func (s *catalogService) ImportSessionize(ctx context.Context, eventID, sessionizeID string) (domain.ImportSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var summary domain.ImportSummary
	if eventID == "" || sessionizeID == "" {
		return summary, domain.ErrInvalidInput
	}
	data, err := s.sessionize.Fetch(ctx, sessionizeID)
	if err != nil {
		return summary, err
	}

	rooms := make(map[int]*domain.Room) // sessionize id -> room
	for _, sr := range data.Rooms {
		now := time.Now()
		room := domain.NewRoom(eventID, sr.Name, 0, now, now)
		room.SessionizeRoomID = sr.ID
		if err := s.slots.UpsertRoomBySessionizeID(ctx, room); err != nil {
			return summary, fmt.Errorf("failed to upsert room %s: %w", sr.Name, err)
		}
		rooms[sr.ID] = room
		summary.Rooms++
	}

	formats := sessionFormats(data.Categories)
	for _, session := range data.Sessions {
		room, ok := rooms[session.RoomID]
		if !ok || session.StartsAt.IsZero() || !session.EndsAt.After(session.StartsAt) {
			continue
		}
		slotType := classifySession(session, formats)
		capacity := 0
		if slotType != domain.SlotTypeBreak {
			capacity = domain.EffectiveCapacity(s.defaultCapacity, room.Ceiling)
		}
		now := time.Now()
		slot := domain.NewSlot(eventID, room.ID, session.Title, slotType, session.StartsAt, session.EndsAt, capacity, now, now)
		slot.SessionizeSessionID = session.ID
		if err := s.slots.UpsertSlotBySessionizeID(ctx, slot); err != nil {
			return summary, fmt.Errorf("failed to upsert slot %s: %w", session.Title, err)
		}
		summary.Slots++
	}

	invalidateSchedule(ctx, s.cache, s.logger, eventID)
	s.logger.InfoContext(ctx, "sessionize import finished", "event_id", eventID, "rooms", summary.Rooms, "slots", summary.Slots)
	return summary, nil
}

// sessionFormats maps category item ids of the session format category to lower-cased names.
func sessionFormats(categories []domain.SessionFetcherCategory) map[int]string {
	out := make(map[int]string)
	for _, cat := range categories {
		if strings.ToLower(strings.TrimSpace(cat.Title)) != sessionFormatCategory {
			continue
		}
		for _, item := range cat.Items {
			out[item.ID] = strings.ToLower(item.Name)
		}
	}
	return out
}

func classifySession(session domain.SessionFetcherSession, formats map[int]string) domain.SlotType {
	if session.IsServiceSession {
		return domain.SlotTypeBreak
	}
	for _, id := range session.CategoryItems {
		name, ok := formats[id]
		if !ok {
			continue
		}
		switch {
		case strings.Contains(name, "keynote"):
			return domain.SlotTypeKeynote
		case strings.Contains(name, "workshop"):
			return domain.SlotTypeWorkshop
		}
	}
	return domain.SlotTypeTalk
}
