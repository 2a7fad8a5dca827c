package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"slotbooking/internal/domain"
)

type SlotRepository struct {
	DB *sql.DB
}

func NewSlotRepository(db *sql.DB) domain.SlotRepository {
	return &SlotRepository{
		DB: db,
	}
}

func (r *SlotRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (event_id, name, ceiling, not_bookable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, room.EventID, room.Name, room.Ceiling, room.NotBookable, room.CreatedAt, room.UpdatedAt).Scan(&room.ID)
}

// UpsertRoomBySessionizeID keeps ceiling and not_bookable of an existing room; only the name follows the import.
func (r *SlotRepository) UpsertRoomBySessionizeID(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (event_id, name, ceiling, not_bookable, sessionize_room_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, sessionize_room_id) DO UPDATE
		SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING id, ceiling, not_bookable
	`
	return r.DB.QueryRowContext(ctx, query, room.EventID, room.Name, room.Ceiling, room.NotBookable, room.SessionizeRoomID, room.CreatedAt, room.UpdatedAt).
		Scan(&room.ID, &room.Ceiling, &room.NotBookable)
}

func (r *SlotRepository) GetRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	query := `
		SELECT id, event_id, name, ceiling, not_bookable, COALESCE(sessionize_room_id, 0), created_at, updated_at
		FROM rooms
		WHERE id = $1
	`
	room := &domain.Room{}
	err := r.DB.QueryRowContext(ctx, query, roomID).Scan(&room.ID, &room.EventID, &room.Name, &room.Ceiling, &room.NotBookable, &room.SessionizeRoomID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *SlotRepository) UpdateRoom(ctx context.Context, roomID string, name *string, ceiling *int, notBookable *bool) (*domain.Room, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	if name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", n))
		args = append(args, *name)
		n++
	}
	if ceiling != nil {
		setClauses = append(setClauses, fmt.Sprintf("ceiling = $%d", n))
		args = append(args, *ceiling)
		n++
	}
	if notBookable != nil {
		setClauses = append(setClauses, fmt.Sprintf("not_bookable = $%d", n))
		args = append(args, *notBookable)
		n++
	}
	if n == 1 {
		return r.GetRoomByID(ctx, roomID)
	}
	args = append(args, roomID)
	query := fmt.Sprintf(`
		UPDATE rooms SET %s
		WHERE id = $%d
		RETURNING id, event_id, name, ceiling, not_bookable, COALESCE(sessionize_room_id, 0), created_at, updated_at
	`, strings.Join(setClauses, ", "), n)
	room := &domain.Room{}
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&room.ID, &room.EventID, &room.Name, &room.Ceiling, &room.NotBookable, &room.SessionizeRoomID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *SlotRepository) CreateSlot(ctx context.Context, s *domain.Slot) error {
	query := `
		INSERT INTO slots (event_id, room_id, title, slot_type, start_time, end_time, max_capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, seats_taken
	`
	return r.DB.QueryRowContext(ctx, query, s.EventID, s.RoomID, s.Title, string(s.Type), s.StartTime, s.EndTime, s.MaxCapacity, s.CreatedAt, s.UpdatedAt).
		Scan(&s.ID, &s.SeatsTaken)
}

func (r *SlotRepository) UpsertSlotBySessionizeID(ctx context.Context, s *domain.Slot) error {
	query := `
		INSERT INTO slots (event_id, room_id, title, slot_type, start_time, end_time, max_capacity, sessionize_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id, sessionize_session_id) DO UPDATE
		SET room_id = EXCLUDED.room_id, title = EXCLUDED.title, slot_type = EXCLUDED.slot_type,
		    start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, updated_at = EXCLUDED.updated_at
		WHERE slots.seats_taken = 0
		RETURNING id, seats_taken
	`
	err := r.DB.QueryRowContext(ctx, query, s.EventID, s.RoomID, s.Title, string(s.Type), s.StartTime, s.EndTime, s.MaxCapacity, s.SessionizeSessionID, s.CreatedAt, s.UpdatedAt).
		Scan(&s.ID, &s.SeatsTaken)
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	// Conflict row has registrations and was left as is.
	return r.DB.QueryRowContext(ctx, `SELECT id, seats_taken FROM slots WHERE event_id = $1 AND sessionize_session_id = $2`, s.EventID, s.SessionizeSessionID).
		Scan(&s.ID, &s.SeatsTaken)
}

func (r *SlotRepository) GetSlotWithRoom(ctx context.Context, slotID string) (*domain.SlotWithRoom, error) {
	query := `SELECT` + slotWithRoomColumns + `
		FROM slots s
		INNER JOIN rooms r ON r.id = s.room_id
		WHERE s.id = $1
	`
	sr, err := scanSlotWithRoom(r.DB.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return sr, nil
}

func (r *SlotRepository) SetSlotCapacity(ctx context.Context, slotID string, maxCapacity int) (*domain.Slot, error) {
	query := `
		UPDATE slots
		SET max_capacity = $2, updated_at = NOW()
		WHERE id = $1 AND seats_taken <= $2 AND (seats_taken = 0 OR max_capacity <= $2)
		RETURNING id, event_id, room_id, title, slot_type, start_time, end_time, max_capacity, seats_taken, COALESCE(sessionize_session_id, ''), created_at, updated_at
	`
	s := &domain.Slot{}
	var slotType string
	err := r.DB.QueryRowContext(ctx, query, slotID, maxCapacity).Scan(
		&s.ID, &s.EventID, &s.RoomID, &s.Title, &slotType, &s.StartTime, &s.EndTime,
		&s.MaxCapacity, &s.SeatsTaken, &s.SessionizeSessionID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == nil {
		s.Type = domain.SlotType(slotType)
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrSlotLocked
}

func (r *SlotRepository) ListSlotsByEventID(ctx context.Context, eventID string) ([]*domain.SlotWithRoom, error) {
	query := `SELECT` + slotWithRoomColumns + `
		FROM slots s
		INNER JOIN rooms r ON r.id = s.room_id
		WHERE s.event_id = $1
		ORDER BY s.start_time, r.name
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]*domain.SlotWithRoom, 0)
	for rows.Next() {
		sr, err := scanSlotWithRoom(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, sr)
	}
	return slots, rows.Err()
}

// ListSlotsByIDs loads several slots in one round trip. Unknown ids are skipped.
func (r *SlotRepository) ListSlotsByIDs(ctx context.Context, slotIDs []string) ([]*domain.SlotWithRoom, error) {
	if len(slotIDs) == 0 {
		return []*domain.SlotWithRoom{}, nil
	}
	query := `SELECT` + slotWithRoomColumns + `
		FROM slots s
		INNER JOIN rooms r ON r.id = s.room_id
		WHERE s.id = ANY($1)
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(slotIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]*domain.SlotWithRoom, 0, len(slotIDs))
	for rows.Next() {
		sr, err := scanSlotWithRoom(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, sr)
	}
	return slots, rows.Err()
}
