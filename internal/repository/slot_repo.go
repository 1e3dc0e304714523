package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"parkeo/internal/db"
)

// SlotRepository is the per-venue per-day capacity ledger. All capacity
// mutation in the system goes through TryConsume and Release.
type SlotRepository interface {
	// TryConsume takes one unit for (spaceID, date), creating the entry
	// lazily. Returns ErrDateFull when reserved_count has reached ceiling.
	// The read-increment-write is a single atomic statement: two concurrent
	// callers racing for the last unit cannot both succeed.
	TryConsume(spaceID, date string, ceiling int) error
	// Release returns one unit, never going below zero. Releasing a
	// missing entry is a no-op.
	Release(spaceID, date string) error
	Count(spaceID, date string) (int, error)
	ListBySpace(spaceID string) ([]db.ReservedSlot, error)
}

type slotRepository struct {
	db *sql.DB
}

func NewSlotRepository(database *sql.DB) SlotRepository {
	return &slotRepository{db: database}
}

func (r *slotRepository) TryConsume(spaceID, date string, ceiling int) error {
	if ceiling <= 0 {
		return ErrDateFull
	}

	// The conditional upsert either inserts the first unit or increments
	// under the ceiling. When the WHERE clause rejects the increment no row
	// comes back, which is the "full" signal. Concurrent callers serialize
	// on the row lock taken by the update.
	query := `
		INSERT INTO reserved_slots (parking_space_id, date, reserved_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (parking_space_id, date) DO UPDATE
		SET reserved_count = reserved_slots.reserved_count + 1
		WHERE reserved_slots.reserved_count < $3
		RETURNING reserved_count`

	var count int
	err := r.db.QueryRow(query, spaceID, date, ceiling).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDateFull
		}
		return fmt.Errorf("consume slot %s/%s: %w", spaceID, date, err)
	}
	return nil
}

func (r *slotRepository) Release(spaceID, date string) error {
	query := `
		UPDATE reserved_slots
		SET reserved_count = reserved_count - 1
		WHERE parking_space_id = $1 AND date = $2 AND reserved_count > 0`

	if _, err := r.db.Exec(query, spaceID, date); err != nil {
		return fmt.Errorf("release slot %s/%s: %w", spaceID, date, err)
	}
	return nil
}

func (r *slotRepository) Count(spaceID, date string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT reserved_count FROM reserved_slots WHERE parking_space_id = $1 AND date = $2`,
		spaceID, date,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count slot %s/%s: %w", spaceID, date, err)
	}
	return count, nil
}

func (r *slotRepository) ListBySpace(spaceID string) ([]db.ReservedSlot, error) {
	rows, err := r.db.Query(
		`SELECT id, parking_space_id, date, reserved_count
		 FROM reserved_slots WHERE parking_space_id = $1 ORDER BY date ASC`,
		spaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots for space %s: %w", spaceID, err)
	}
	defer rows.Close()

	var slots []db.ReservedSlot
	for rows.Next() {
		var s db.ReservedSlot
		if err := rows.Scan(&s.ID, &s.ParkingSpaceID, &s.Date, &s.ReservedCount); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
