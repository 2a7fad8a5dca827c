package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slotbooking/internal/domain"
)

type availabilityService struct {
	slots           domain.SlotRepository
	reservations    domain.ReservationRepository
	cache           domain.ScheduleCache
	now             domain.Clock
	logger          *slog.Logger
	almostFullRatio float64
	contextTimeout  time.Duration
}

// NewAvailabilityService returns the read model. cache may be nil, in which case every schedule
// request reads the store.
func NewAvailabilityService(
	slots domain.SlotRepository,
	reservations domain.ReservationRepository,
	cache domain.ScheduleCache,
	clock domain.Clock,
	logger *slog.Logger,
	almostFullRatio float64,
	timeout time.Duration,
) domain.AvailabilityService {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &availabilityService{
		slots:           slots,
		reservations:    reservations,
		cache:           cache,
		now:             clock,
		logger:          logger,
		almostFullRatio: almostFullRatio,
		contextTimeout:  timeout,
	}
}

func (s *availabilityService) AvailableSeats(ctx context.Context, slotID string) (domain.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	sr, err := s.slots.GetSlotWithRoom(ctx, slotID)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.NewAvailability(*sr, s.almostFullRatio, s.now()), nil
}

func (s *availabilityService) IsRegistered(ctx context.Context, userID, slotID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	res, err := s.reservations.GetActiveByUserAndSlot(ctx, userID, slotID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Status.Attending(), nil
}

func (s *availabilityService) ScheduleFor(ctx context.Context, eventID string) ([]domain.ScheduleEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if s.cache != nil {
		entries, hit, err := s.cache.Get(ctx, eventID)
		if err != nil {
			s.logger.WarnContext(ctx, "schedule cache read failed", "event_id", eventID, "err", err)
		} else if hit {
			return entries, nil
		}
	}

	slots, err := s.slots.ListSlotsByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	now := s.now()
	entries := make([]domain.ScheduleEntry, 0, len(slots))
	for _, sr := range slots {
		entries = append(entries, domain.ScheduleEntry{
			Slot:         sr.Slot,
			RoomName:     sr.Room.Name,
			Availability: domain.NewAvailability(*sr, s.almostFullRatio, now),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, eventID, entries); err != nil {
			s.logger.WarnContext(ctx, "schedule cache write failed", "event_id", eventID, "err", err)
		}
	}
	return entries, nil
}
