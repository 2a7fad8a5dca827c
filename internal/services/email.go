package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"slotbooking/internal/domain"
)

// reservationTemplates maps event types that notify the attendee to template names.
var reservationTemplates = map[string]string{
	domain.EventReservationCreated:   "reservation_created",
	domain.EventReservationCancelled: "reservation_cancelled",
}

type emailNotifier struct {
	users    domain.UserRepository
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailNotifier returns an EventSink that mails attendees when a reservation is created or
// cancelled. Other event types are ignored.
func NewEmailNotifier(users domain.UserRepository, mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &emailNotifier{users: users, mailer: mailer, renderer: renderer, logger: logger}
}

func (n *emailNotifier) Name() string { return "email" }

func (n *emailNotifier) Deliver(ctx context.Context, ev domain.ReservationEvent) error {
	tmpl, ok := reservationTemplates[ev.Type]
	if !ok {
		return nil
	}
	user, err := n.users.GetByID(ctx, ev.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		n.logger.WarnContext(ctx, "notification skipped, unknown user", "user_id", ev.UserID, "event_type", ev.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user.Email == "" {
		return nil
	}
	data := &domain.ReservationEmailData{
		Email:     user.Email,
		Name:      user.Name,
		SlotTitle: ev.SlotTitle,
		StartsAt:  ev.StartsAt.Format("Mon 2 Jan 15:04 MST"),
		Status:    string(ev.Status),
	}
	subject, htmlBody, textBody, err := n.renderer.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", tmpl, err)
	}
	if err := n.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", tmpl, err)
	}
	n.logger.InfoContext(ctx, "reservation email sent", "to", data.Email, "template", tmpl)
	return nil
}
