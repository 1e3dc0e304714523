package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"parkeo/internal/db"
)

type JobRepository interface {
	// StaleCreatedReservationIDs finds CREATED reservations whose checkout
	// was opened before the cutoff and never settled.
	StaleCreatedReservationIDs(before time.Time) ([]string, error)
	// PaidReservationsPastEnd finds PAID reservations whose window has
	// already ended, candidates for auto-completion.
	PaidReservationsPastEnd(now time.Time) ([]db.Reservation, error)
	UpdateReservationStatuses(ids []string, newStatus string, updatedAt time.Time) error
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(database *sql.DB) JobRepository {
	return &jobRepository{db: database}
}

func (r *jobRepository) StaleCreatedReservationIDs(before time.Time) ([]string, error) {
	query := `SELECT id FROM reservations WHERE status = $1 AND created_at < $2`
	rows, err := r.db.Query(query, db.ReservationCreated, before)
	if err != nil {
		return nil, fmt.Errorf("query stale created reservations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *jobRepository) PaidReservationsPastEnd(now time.Time) ([]db.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations WHERE status = $1 AND end_time < $2`
	rows, err := r.db.Query(query, db.ReservationPaid, now)
	if err != nil {
		return nil, fmt.Errorf("query paid reservations past end: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

func (r *jobRepository) UpdateReservationStatuses(ids []string, newStatus string, updatedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = ANY($3)`
	result, err := r.db.Exec(query, newStatus, updatedAt, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("update reservation statuses: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Could not get rows affected: %v", err)
	} else {
		log.Printf("Updated status for %d reservations to '%s'", affected, newStatus)
	}
	return nil
}
