// Package memory is an in-process implementation of the booking storage ports.
// It backs local development and the concurrency tests; production uses postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"slotbooking/internal/domain"

	"github.com/google/uuid"
)

// Store keeps rooms, slots, reservations and users in maps guarded by one mutex.
// A booking transaction holds the mutex for its whole duration, so transactions are serial.
type Store struct {
	mu           sync.Mutex
	rooms        map[string]*domain.Room
	slots        map[string]*domain.Slot
	reservations map[string]*domain.Reservation
	users        map[string]*domain.User
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[string]*domain.Room),
		slots:        make(map[string]*domain.Slot),
		reservations: make(map[string]*domain.Reservation),
		users:        make(map[string]*domain.User),
	}
}

// PutUser seeds an identity record.
func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// WithinTx runs fn with exclusive access to the store. Every change fn makes is undone when it
// returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.BookingTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// The deadline may have passed while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &bookingTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) TryReserve(ctx context.Context, slotID string) (int, error) {
	var taken int
	err := s.WithinTx(ctx, func(tx domain.BookingTx) error {
		var err error
		taken, err = tx.TryReserve(ctx, slotID)
		return err
	})
	return taken, err
}

func (s *Store) Release(ctx context.Context, slotID string) error {
	return s.WithinTx(ctx, func(tx domain.BookingTx) error {
		return tx.Release(ctx, slotID)
	})
}

type bookingTx struct {
	store *Store
	undo  []func()
}

func (tx *bookingTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *bookingTx) TryReserve(ctx context.Context, slotID string) (int, error) {
	slot, ok := tx.store.slots[slotID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	room := tx.store.rooms[slot.RoomID]
	ceiling := 0
	if room != nil {
		ceiling = room.Ceiling
	}
	if slot.SeatsTaken >= domain.EffectiveCapacity(slot.MaxCapacity, ceiling) {
		return 0, domain.ErrSlotFull
	}
	slot.SeatsTaken++
	tx.undo = append(tx.undo, func() { slot.SeatsTaken-- })
	return slot.SeatsTaken, nil
}

func (tx *bookingTx) Release(ctx context.Context, slotID string) error {
	slot, ok := tx.store.slots[slotID]
	if !ok {
		return domain.ErrNotFound
	}
	if slot.SeatsTaken == 0 {
		return nil
	}
	slot.SeatsTaken--
	tx.undo = append(tx.undo, func() { slot.SeatsTaken++ })
	return nil
}

func (tx *bookingTx) GetSlotWithRoom(ctx context.Context, slotID string) (*domain.SlotWithRoom, error) {
	return tx.store.slotWithRoom(slotID)
}

func (tx *bookingTx) GetActiveReservation(ctx context.Context, userID, slotID string) (*domain.Reservation, error) {
	if res := tx.store.activeReservation(userID, slotID); res != nil {
		cp := *res
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (tx *bookingTx) InsertReservation(ctx context.Context, res *domain.Reservation) error {
	if tx.store.activeReservation(res.UserID, res.SlotID) != nil {
		return domain.ErrDuplicateReservation
	}
	res.ID = uuid.NewString()
	cp := *res
	tx.store.reservations[res.ID] = &cp
	id := res.ID
	tx.undo = append(tx.undo, func() { delete(tx.store.reservations, id) })
	return nil
}

func (tx *bookingTx) UpdateReservation(ctx context.Context, res *domain.Reservation) error {
	prev, ok := tx.store.reservations[res.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if res.Status.HoldsSeat() && !prev.Status.HoldsSeat() {
		if other := tx.store.activeReservation(res.UserID, res.SlotID); other != nil && other.ID != res.ID {
			return domain.ErrDuplicateReservation
		}
	}
	old := *prev
	cp := *res
	tx.store.reservations[res.ID] = &cp
	tx.undo = append(tx.undo, func() { tx.store.reservations[old.ID] = &old })
	return nil
}

func (s *Store) activeReservation(userID, slotID string) *domain.Reservation {
	for _, res := range s.reservations {
		if res.UserID == userID && res.SlotID == slotID && res.Status.HoldsSeat() {
			return res
		}
	}
	return nil
}

func (s *Store) slotWithRoom(slotID string) (*domain.SlotWithRoom, error) {
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	room, ok := s.rooms[slot.RoomID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sc, rc := *slot, *room
	return &domain.SlotWithRoom{Slot: &sc, Room: &rc}, nil
}

// SeatsTaken returns the ledger counter of a slot.
func (s *Store) SeatsTaken(slotID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[slotID]; ok {
		return slot.SeatsTaken
	}
	return 0
}

// CountHolding returns the number of reservations of slotID that hold a seat.
func (s *Store) CountHolding(slotID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, res := range s.reservations {
		if res.SlotID == slotID && res.Status.HoldsSeat() {
			n++
		}
	}
	return n
}

func (s *Store) GetActiveByUserAndSlot(ctx context.Context, userID, slotID string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.activeReservation(userID, slotID); res != nil {
		cp := *res
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListByUserID(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Reservation, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*domain.Reservation, 0)
	for _, res := range s.reservations {
		if res.UserID == userID {
			cp := *res
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	from := params.Offset()
	if from > total {
		from = total
	}
	to := from + params.Limit()
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

func (s *Store) MarkNoShows(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := make([]*domain.Reservation, 0)
	for _, res := range s.reservations {
		if res.Status != domain.StatusRegistered {
			continue
		}
		slot, ok := s.slots[res.SlotID]
		if !ok || !slot.EndTime.Before(now) {
			continue
		}
		res.Status = domain.StatusNoShow
		res.UpdatedAt = now
		cp := *res
		marked = append(marked, &cp)
	}
	return marked, nil
}
