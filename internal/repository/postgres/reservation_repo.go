package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"slotbooking/internal/domain"
)

type reservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(db *sql.DB) domain.ReservationRepository {
	return &reservationRepository{
		DB: db,
	}
}

func (r *reservationRepository) GetActiveByUserAndSlot(ctx context.Context, userID, slotID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1 AND slot_id = $2 AND status <> 'cancelled'
	`
	res, err := scanReservation(r.DB.QueryRowContext(ctx, query, userID, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

func (r *reservationRepository) ListByUserID(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Reservation, int, error) {
	query := `
		SELECT ` + reservationColumns + `, COUNT(*) OVER()
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		list  = make([]*domain.Reservation, 0)
		total int
	)
	for rows.Next() {
		res := &domain.Reservation{}
		var status string
		var badge sql.NullString
		var checkedIn, checkedOut, cancelled sql.NullTime
		if err := rows.Scan(&res.ID, &res.SlotID, &res.UserID, &status, &badge, &res.CreatedAt, &res.UpdatedAt, &checkedIn, &checkedOut, &cancelled, &total); err != nil {
			return nil, 0, err
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
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *reservationRepository) MarkNoShows(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	query := `
		UPDATE reservations res
		SET status = 'no_show', updated_at = $1
		FROM slots s
		WHERE s.id = res.slot_id AND res.status = 'registered' AND s.end_time < $1
		RETURNING res.id, res.slot_id, res.user_id, res.status, res.badge_ref, res.created_at, res.updated_at, res.checked_in_at, res.checked_out_at, res.cancelled_at
	`
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	marked := make([]*domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		marked = append(marked, res)
	}
	return marked, rows.Err()
}
