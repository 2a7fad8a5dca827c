// Package events fans committed reservation events out to the configured sinks off the request path.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"slotbooking/internal/domain"
)

// Dispatcher is a domain.EventPublisher backed by a bounded queue. Publish never blocks: when the
// queue is full the event is logged and dropped. Run delivers queued events to every sink in order.
type Dispatcher struct {
	queue        chan envelope
	sinks        []domain.EventSink
	logger       *slog.Logger
	deliverLimit time.Duration

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

type envelope struct {
	ctx context.Context
	ev  domain.ReservationEvent
}

var _ domain.EventPublisher = (*Dispatcher)(nil)

func NewDispatcher(buffer int, logger *slog.Logger, sinks ...domain.EventSink) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:        make(chan envelope, buffer),
		sinks:        sinks,
		logger:       logger,
		deliverLimit: 10 * time.Second,
	}
}

// Publish enqueues ev. The request context is detached so its cancellation does not abort delivery.
func (d *Dispatcher) Publish(ctx context.Context, ev domain.ReservationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WarnContext(ctx, "event dropped, dispatcher stopped", "event_type", ev.Type, "event_id", ev.ID)
		return
	}
	select {
	case d.queue <- envelope{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		d.logger.WarnContext(ctx, "event dropped, queue full", "event_type", ev.Type, "event_id", ev.ID)
		d.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is done, then drains what is already queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case env := <-d.queue:
			d.deliver(env)
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			for {
				select {
				case env := <-d.queue:
					d.deliver(env)
				default:
					return nil
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(env envelope) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(env.ctx, d.deliverLimit)
		err := sink.Deliver(ctx, env.ev)
		cancel()
		if err != nil {
			d.logger.ErrorContext(env.ctx, "event delivery failed",
				"sink", sink.Name(), "event_type", env.ev.Type, "event_id", env.ev.ID, "err", err)
		}
	}
}

// LogSink writes every event to the structured log. It is the sink used when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Name() string { return "log" }

func (s LogSink) Deliver(ctx context.Context, ev domain.ReservationEvent) error {
	s.Logger.InfoContext(ctx, "reservation event",
		"event_type", ev.Type,
		"reservation_id", ev.ReservationID,
		"user_id", ev.UserID,
		"slot_id", ev.SlotID,
		"status", ev.Status,
	)
	return nil
}
