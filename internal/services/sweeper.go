package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"slotbooking/internal/domain"

	"github.com/robfig/cron/v3"
)

// NoShowSweeper moves REGISTERED reservations of finished slots to NO_SHOW. Seats are kept
// taken because the slot is over.
type NoShowSweeper struct {
	reservations domain.ReservationRepository
	slots        domain.SlotRepository
	publisher    domain.EventPublisher
	cache        domain.ScheduleCache
	now          domain.Clock
	logger       *slog.Logger
	timeout      time.Duration
}

func NewNoShowSweeper(reservations domain.ReservationRepository, slots domain.SlotRepository, publisher domain.EventPublisher, cache domain.ScheduleCache, clock domain.Clock, logger *slog.Logger, timeout time.Duration) *NoShowSweeper {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoShowSweeper{
		reservations: reservations,
		slots:        slots,
		publisher:    publisher,
		cache:        cache,
		now:          clock,
		logger:       logger,
		timeout:      timeout,
	}
}

// Sweep marks no-shows as of now and returns how many reservations changed.
func (s *NoShowSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	marked, err := s.reservations.MarkNoShows(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("mark no-shows: %w", err)
	}

	if len(marked) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(marked))
	seen := make(map[string]bool)
	for _, res := range marked {
		if !seen[res.SlotID] {
			seen[res.SlotID] = true
			ids = append(ids, res.SlotID)
		}
	}
	rows, err := s.slots.ListSlotsByIDs(ctx, ids)
	if err != nil {
		// Reservations are already marked; events and invalidation are best effort.
		s.logger.WarnContext(ctx, "no-show slot lookup failed", "slots", len(ids), "err", err)
		return len(marked), nil
	}
	slots := make(map[string]*domain.Slot, len(rows))
	for _, sr := range rows {
		slots[sr.Slot.ID] = sr.Slot
	}
	for _, res := range marked {
		slot, ok := slots[res.SlotID]
		if !ok {
			continue
		}
		if s.publisher != nil {
			s.publisher.Publish(ctx, newReservationEvent(domain.EventReservationNoShow, res, slot, now))
		}
	}
	for _, slot := range slots {
		invalidateSchedule(ctx, s.cache, s.logger, slot.EventID)
	}
	return len(marked), nil
}

// Run schedules Sweep with a cron spec (e.g. "@every 5m") and blocks until ctx is done.
func (s *NoShowSweeper) Run(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.Sweep(ctx, s.now())
		if err != nil {
			s.logger.ErrorContext(ctx, "no-show sweep failed", "err", err)
			return
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "no-show sweep", "marked", n)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule no-show sweep %q: %w", spec, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
