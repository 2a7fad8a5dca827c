package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"slotbooking/internal/domain"
	"slotbooking/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) domain.Clock {
	return func() time.Time { return t }
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ReservationEvent
}

func (p *fakePublisher) Publish(ctx context.Context, ev domain.ReservationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// fakeCache is an in-memory ScheduleCache that counts invalidations.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.ScheduleEntry
	invalidated map[string]int
	gets        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:     make(map[string][]domain.ScheduleEntry),
		invalidated: make(map[string]int),
	}
}

func (c *fakeCache) Get(ctx context.Context, eventID string) ([]domain.ScheduleEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	e, ok := c.entries[eventID]
	return e, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, eventID string, entries []domain.ScheduleEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[eventID] = entries
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, eventID)
	c.invalidated[eventID]++
	return nil
}

// fakeBadges accepts every badge except those listed in invalid.
type fakeBadges struct {
	invalid map[string]bool
}

func (b fakeBadges) Verify(ctx context.Context, userID, badgeRef string) error {
	if b.invalid[badgeRef] {
		return domain.ErrInvalidBadge
	}
	return nil
}

// slowBadges blocks until the caller's context ends, like an unresponsive badge service.
type slowBadges struct{}

func (slowBadges) Verify(ctx context.Context, userID, badgeRef string) error {
	<-ctx.Done()
	return fmt.Errorf("badge service: %w", ctx.Err())
}

// flakyStore fails the first failures transactions with err before delegating.
type flakyStore struct {
	domain.BookingStore
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(tx domain.BookingTx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return s.err
	}
	return s.BookingStore.WithinTx(ctx, fn)
}

// seedSlot creates a room with ceiling and a slot with maxCapacity in the store, starting in one
// hour from testNow.
func seedSlot(t *testing.T, store *memory.Store, slotType domain.SlotType, ceiling, maxCapacity int) *domain.Slot {
	t.Helper()
	ctx := context.Background()
	room := domain.NewRoom("ev-1", "Auditorium", ceiling, testNow, testNow)
	require.NoError(t, store.CreateRoom(ctx, room))
	slot := domain.NewSlot("ev-1", room.ID, "Go concurrency", slotType, testNow.Add(time.Hour), testNow.Add(2*time.Hour), maxCapacity, testNow, testNow)
	require.NoError(t, store.CreateSlot(ctx, slot))
	return slot
}

type bookingFixture struct {
	store     *memory.Store
	publisher *fakePublisher
	cache     *fakeCache
	booking   domain.BookingService
	reads     domain.AvailabilityService
}

func newBookingFixture(t *testing.T, now time.Time) *bookingFixture {
	t.Helper()
	store := memory.NewStore()
	pub := &fakePublisher{}
	cache := newFakeCache()
	return &bookingFixture{
		store:     store,
		publisher: pub,
		cache:     cache,
		booking:   NewBookingService(store, store, fakeBadges{invalid: map[string]bool{"FORGED": true}}, pub, cache, fixedClock(now), nil, 5*time.Second, 15*time.Minute, time.Millisecond),
		reads:     NewAvailabilityService(store, store, nil, fixedClock(now), nil, 0.1, 5*time.Second),
	}
}
