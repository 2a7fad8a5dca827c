package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"slotbooking/internal/domain"
)

// Postgres error codes the booking layer reacts to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// Open connects to Postgres through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// translateError maps driver errors to domain sentinels, keeping the original in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %v", domain.ErrDuplicateReservation, err)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %v", domain.ErrContention, err)
		case codeQueryCanceled:
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const slotWithRoomColumns = `
	s.id, s.event_id, s.room_id, s.title, s.slot_type, s.start_time, s.end_time,
	s.max_capacity, s.seats_taken, COALESCE(s.sessionize_session_id, ''), s.created_at, s.updated_at,
	r.id, r.event_id, r.name, r.ceiling, r.not_bookable, COALESCE(r.sessionize_room_id, 0), r.created_at, r.updated_at`

func scanSlotWithRoom(row rowScanner) (*domain.SlotWithRoom, error) {
	s := &domain.Slot{}
	room := &domain.Room{}
	var slotType string
	err := row.Scan(
		&s.ID, &s.EventID, &s.RoomID, &s.Title, &slotType, &s.StartTime, &s.EndTime,
		&s.MaxCapacity, &s.SeatsTaken, &s.SessionizeSessionID, &s.CreatedAt, &s.UpdatedAt,
		&room.ID, &room.EventID, &room.Name, &room.Ceiling, &room.NotBookable, &room.SessionizeRoomID, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Type = domain.SlotType(slotType)
	return &domain.SlotWithRoom{Slot: s, Room: room}, nil
}

const reservationColumns = `id, slot_id, user_id, status, badge_ref, created_at, updated_at, checked_in_at, checked_out_at, cancelled_at`

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var status string
	var badge sql.NullString
	var checkedIn, checkedOut, cancelled sql.NullTime
	if err := row.Scan(&res.ID, &res.SlotID, &res.UserID, &status, &badge, &res.CreatedAt, &res.UpdatedAt, &checkedIn, &checkedOut, &cancelled); err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	res.BadgeRef = badge.String
	if checkedIn.Valid {
		res.CheckedInAt = &checkedIn.Time
	}
	if checkedOut.Valid {
		res.CheckedOutAt = &checkedOut.Time
	}
	if cancelled.Valid {
		res.CancelledAt = &cancelled.Time
	}
	return res, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
