// Package broker publishes reservation events to RabbitMQ and consumes them for the audit log.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slotbooking/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Exchange is the durable topic exchange reservation events are published to.
	Exchange = "reservations"
	// AuditQueue receives every reservation.* event for the audit log.
	AuditQueue = "reservations.audit"
)

// publishChannel is the part of *amqp.Channel the publisher uses.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Publisher is a domain.EventSink that writes events to the reservations exchange with the event
// type as routing key. The channel is re-opened once when the broker dropped it.
type Publisher struct {
	url    string
	logger *slog.Logger
	dial   func(url string) (publishChannel, func() error, error)

	mu      sync.Mutex
	ch      publishChannel
	closeFn func() error
}

var _ domain.EventSink = (*Publisher)(nil)

// NewPublisher connects to url and declares the exchange.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{url: url, logger: logger, dial: dialPublisher}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialPublisher(url string) (publishChannel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return ch, conn.Close, nil
}

func (p *Publisher) connect() error {
	ch, closeFn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	p.ch, p.closeFn = ch, closeFn
	return nil
}

func (p *Publisher) Name() string { return "rabbitmq" }

func (p *Publisher) Deliver(ctx context.Context, ev domain.ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, Exchange, ev.Type, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closeFn == nil {
		return nil
	}
	err := p.closeFn()
	p.ch, p.closeFn = nil, nil
	return err
}

// AuditConsumer binds AuditQueue to every reservation.* key and logs each event.
type AuditConsumer struct {
	url    string
	logger *slog.Logger
}

func NewAuditConsumer(url string, logger *slog.Logger) *AuditConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditConsumer{url: url, logger: logger}
}

// Run consumes until ctx is done, reconnecting with exponential backoff (capped at 30s).
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.WarnContext(ctx, "audit consumer disconnected", "err", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(AuditQueue, "reservation.#", Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for d := range msgs {
		if err := c.handle(ctx, d.Body); err != nil {
			c.logger.WarnContext(ctx, "audit message rejected", "err", err, "message_id", d.MessageId)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *AuditConsumer) handle(ctx context.Context, body []byte) error {
	var ev domain.ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.ReservationID == "" {
		return errors.New("event without type or reservation id")
	}
	c.logger.InfoContext(ctx, "reservation audit",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"reservation_id", ev.ReservationID,
		"user_id", ev.UserID,
		"slot_id", ev.SlotID,
		"event", ev.EventID,
		"status", ev.Status,
		"occurred_at", ev.OccurredAt,
	)
	return nil
}
