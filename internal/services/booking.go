package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slotbooking/internal/domain"

	"github.com/google/uuid"
)

// maxDuplicateRetries bounds re-runs of a register transaction that lost the unique-index race
// against a concurrent register of the same user.
const maxDuplicateRetries = 1

type bookingService struct {
	store          domain.BookingStore
	reservations   domain.ReservationRepository
	badges         domain.BadgeVerifier
	publisher      domain.EventPublisher
	cache          domain.ScheduleCache
	now            domain.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
	checkInGrace   time.Duration
	retryBackoff   time.Duration
}

// NewBookingService wires the booking core. publisher and cache may be nil; clock defaults to time.Now.
func NewBookingService(
	store domain.BookingStore,
	reservations domain.ReservationRepository,
	badges domain.BadgeVerifier,
	publisher domain.EventPublisher,
	cache domain.ScheduleCache,
	clock domain.Clock,
	logger *slog.Logger,
	timeout, checkInGrace, retryBackoff time.Duration,
) domain.BookingService {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &bookingService{
		store:          store,
		reservations:   reservations,
		badges:         badges,
		publisher:      publisher,
		cache:          cache,
		now:            clock,
		logger:         logger,
		contextTimeout: timeout,
		checkInGrace:   checkInGrace,
		retryBackoff:   retryBackoff,
	}
}

func (s *bookingService) Register(ctx context.Context, userID, slotID string) (*domain.Reservation, bool, error) {
	if userID == "" || slotID == "" {
		return nil, false, domain.ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		res     *domain.Reservation
		slot    *domain.SlotWithRoom
		created bool
	)
	err := s.runTx(ctx, func(tx domain.BookingTx) error {
		res, created = nil, false
		var err error
		slot, err = tx.GetSlotWithRoom(ctx, slotID)
		if err != nil {
			return err
		}
		existing, err := tx.GetActiveReservation(ctx, userID, slotID)
		if err == nil {
			res = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		now := s.now()
		if err := slot.CheckBookable(now); err != nil {
			return err
		}
		if _, err := tx.TryReserve(ctx, slotID); err != nil {
			return err
		}
		r := domain.NewReservation(slotID, userID, now)
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		res, created = r, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.afterCommit(ctx, domain.EventReservationCreated, res, slot)
	}
	return res, created, nil
}

func (s *bookingService) Cancel(ctx context.Context, userID, slotID string) (*domain.Reservation, error) {
	return s.transition(ctx, userID, slotID, domain.EventReservationCancelled, func(tx domain.BookingTx, res *domain.Reservation, _ *domain.SlotWithRoom, now time.Time) error {
		if err := res.Transition(domain.StatusCancelled, now); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, res); err != nil {
			return err
		}
		return tx.Release(ctx, slotID)
	})
}

func (s *bookingService) CheckIn(ctx context.Context, userID, slotID, badgeRef string) (*domain.Reservation, error) {
	if badgeRef == "" {
		return nil, domain.ErrInvalidBadge
	}
	// The badge lookup shares the booking deadline with the transaction that follows.
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	if err := s.badges.Verify(ctx, userID, badgeRef); err != nil {
		return nil, asTimeout(ctx, err)
	}
	return s.transition(ctx, userID, slotID, domain.EventReservationCheckedIn, func(tx domain.BookingTx, res *domain.Reservation, slot *domain.SlotWithRoom, now time.Time) error {
		if !res.Status.CanTransition(domain.StatusCheckedIn) {
			return domain.ErrInvalidTransition
		}
		if !domain.WithinCheckInWindow(slot.Slot, s.checkInGrace, now) {
			return domain.ErrInvalidCheckInWindow
		}
		if err := res.Transition(domain.StatusCheckedIn, now); err != nil {
			return err
		}
		res.BadgeRef = badgeRef
		return tx.UpdateReservation(ctx, res)
	})
}

func (s *bookingService) CheckOut(ctx context.Context, userID, slotID string) (*domain.Reservation, error) {
	return s.transition(ctx, userID, slotID, domain.EventReservationCheckedOut, func(tx domain.BookingTx, res *domain.Reservation, _ *domain.SlotWithRoom, now time.Time) error {
		if err := res.Transition(domain.StatusCheckedOut, now); err != nil {
			return err
		}
		return tx.UpdateReservation(ctx, res)
	})
}

func (s *bookingService) ListMyReservations(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Reservation, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	list, total, err := s.reservations.ListByUserID(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	return list, total, nil
}

type transitionFunc func(tx domain.BookingTx, res *domain.Reservation, slot *domain.SlotWithRoom, now time.Time) error

// transition loads the user's active reservation for the slot inside a booking transaction and
// applies fn to it. A missing reservation is ErrNotRegistered.
func (s *bookingService) transition(ctx context.Context, userID, slotID, eventType string, fn transitionFunc) (*domain.Reservation, error) {
	if userID == "" || slotID == "" {
		return nil, domain.ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		res  *domain.Reservation
		slot *domain.SlotWithRoom
	)
	err := s.runTx(ctx, func(tx domain.BookingTx) error {
		var err error
		slot, err = tx.GetSlotWithRoom(ctx, slotID)
		if err != nil {
			return err
		}
		res, err = tx.GetActiveReservation(ctx, userID, slotID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotRegistered
		}
		if err != nil {
			return err
		}
		return fn(tx, res, slot, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, eventType, res, slot)
	return res, nil
}

// runTx runs fn in a booking transaction. Contention is retried once after retryBackoff, a lost
// unique-index race is re-run so the caller sees the winner's reservation, and an exhausted
// deadline becomes ErrTimeout.
func (s *bookingService) runTx(ctx context.Context, fn func(tx domain.BookingTx) error) error {
	duplicates := 0
	contentionRetried := false
	for {
		err := s.store.WithinTx(ctx, fn)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrDuplicateReservation) && duplicates < maxDuplicateRetries:
			duplicates++
			continue
		case errors.Is(err, domain.ErrContention) && !contentionRetried:
			contentionRetried = true
			s.logger.WarnContext(ctx, "booking contention, retrying", "err", err)
			t := time.NewTimer(s.retryBackoff)
			select {
			case <-t.C:
				continue
			case <-ctx.Done():
				t.Stop()
				return asTimeout(ctx, ctx.Err())
			}
		}
		return asTimeout(ctx, err)
	}
}

func asTimeout(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// afterCommit publishes the domain event and drops the cached schedule of the slot's event.
// Neither can fail the already committed operation.
func (s *bookingService) afterCommit(ctx context.Context, eventType string, res *domain.Reservation, slot *domain.SlotWithRoom) {
	if slot == nil || res == nil {
		return
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, newReservationEvent(eventType, res, slot.Slot, s.now()))
	}
	invalidateSchedule(ctx, s.cache, s.logger, slot.Slot.EventID)
}

func newReservationEvent(eventType string, res *domain.Reservation, slot *domain.Slot, now time.Time) domain.ReservationEvent {
	return domain.ReservationEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReservationID: res.ID,
		UserID:        res.UserID,
		SlotID:        res.SlotID,
		EventID:       slot.EventID,
		SlotTitle:     slot.Title,
		StartsAt:      slot.StartTime,
		Status:        res.Status,
		OccurredAt:    now,
	}
}

func invalidateSchedule(ctx context.Context, cache domain.ScheduleCache, logger *slog.Logger, eventID string) {
	if cache == nil || eventID == "" {
		return
	}
	if err := cache.Invalidate(context.WithoutCancel(ctx), eventID); err != nil {
		logger.WarnContext(ctx, "schedule cache invalidate failed", "event_id", eventID, "err", err)
	}
}
