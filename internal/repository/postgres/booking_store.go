package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbooking/internal/domain"
)

// BookingStore runs booking transactions against Postgres. Per-slot mutual exclusion comes
// from the row lock taken by the ledger's conditional UPDATE.
type BookingStore struct {
	DB          *sql.DB
	LockTimeout time.Duration
}

func NewBookingStore(db *sql.DB, lockTimeout time.Duration) *BookingStore {
	return &BookingStore{DB: db, LockTimeout: lockTimeout}
}

func (s *BookingStore) WithinTx(ctx context.Context, fn func(tx domain.BookingTx) error) (err error) {
	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return translateError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if s.LockTimeout > 0 {
		// SET LOCAL does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())
		if _, err = sqlTx.ExecContext(ctx, stmt); err != nil {
			return translateError(fmt.Errorf("set lock timeout: %w", err))
		}
	}

	if err = fn(&bookingTx{tx: sqlTx}); err != nil {
		return translateError(err)
	}
	if err = sqlTx.Commit(); err != nil {
		return translateError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// TryReserve and Release outside a booking transaction, for callers that only need the ledger.
func (s *BookingStore) TryReserve(ctx context.Context, slotID string) (int, error) {
	var taken int
	err := s.WithinTx(ctx, func(tx domain.BookingTx) error {
		var err error
		taken, err = tx.TryReserve(ctx, slotID)
		return err
	})
	return taken, err
}

func (s *BookingStore) Release(ctx context.Context, slotID string) error {
	return s.WithinTx(ctx, func(tx domain.BookingTx) error {
		return tx.Release(ctx, slotID)
	})
}

type bookingTx struct {
	tx *sql.Tx
}

// TryReserve is the single conditional check-and-increment of the capacity counter.
func (b *bookingTx) TryReserve(ctx context.Context, slotID string) (int, error) {
	query := `
		UPDATE slots s
		SET seats_taken = s.seats_taken + 1, updated_at = NOW()
		FROM rooms r
		WHERE s.id = $1 AND r.id = s.room_id
		  AND s.seats_taken < LEAST(s.max_capacity, CASE WHEN r.ceiling > 0 THEN r.ceiling ELSE s.max_capacity END)
		RETURNING s.seats_taken
	`
	var taken int
	err := b.tx.QueryRowContext(ctx, query, slotID).Scan(&taken)
	if err == nil {
		return taken, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reserve seat: %w", err)
	}
	// The increment already failed; this only tells "full" apart from "missing".
	var exists bool
	if err := b.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check slot: %w", err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrSlotFull
}

func (b *bookingTx) Release(ctx context.Context, slotID string) error {
	query := `
		UPDATE slots
		SET seats_taken = seats_taken - 1, updated_at = NOW()
		WHERE id = $1 AND seats_taken > 0
	`
	if _, err := b.tx.ExecContext(ctx, query, slotID); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

func (b *bookingTx) GetSlotWithRoom(ctx context.Context, slotID string) (*domain.SlotWithRoom, error) {
	query := `SELECT` + slotWithRoomColumns + `
		FROM slots s
		INNER JOIN rooms r ON r.id = s.room_id
		WHERE s.id = $1
	`
	sr, err := scanSlotWithRoom(b.tx.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return sr, nil
}

func (b *bookingTx) GetActiveReservation(ctx context.Context, userID, slotID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1 AND slot_id = $2 AND status <> 'cancelled'
		FOR UPDATE
	`
	res, err := scanReservation(b.tx.QueryRowContext(ctx, query, userID, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (b *bookingTx) InsertReservation(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (slot_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := b.tx.QueryRowContext(ctx, query, res.SlotID, res.UserID, string(res.Status), res.CreatedAt, res.UpdatedAt).Scan(&res.ID)
	if err != nil {
		return translateError(fmt.Errorf("insert reservation: %w", err))
	}
	return nil
}

func (b *bookingTx) UpdateReservation(ctx context.Context, res *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $2, badge_ref = $3, updated_at = $4, checked_in_at = $5, checked_out_at = $6, cancelled_at = $7
		WHERE id = $1
	`
	result, err := b.tx.ExecContext(ctx, query, res.ID, string(res.Status), nullString(res.BadgeRef), res.UpdatedAt,
		nullTime(res.CheckedInAt), nullTime(res.CheckedOutAt), nullTime(res.CancelledAt))
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
