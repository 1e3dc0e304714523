package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parkeo/internal/db"
)

const reservationColumns = `
	id, user_id, parking_space_id, vehicle_id, start_time, end_time,
	reservation_type, hourly_rate, whole_day_rate, discount, tax, total_price,
	discount_note, status, created_at, updated_at`

type ReservationRepository interface {
	Create(res *db.Reservation) error
	GetByID(id string) (*db.Reservation, error)
	// ListByUserVehicleSpace returns the user's active (created or paid)
	// reservations for the same vehicle and space. Feeds the overlap check;
	// cancelled and completed reservations do not block a window.
	ListByUserVehicleSpace(userID, vehicleID, spaceID string) ([]db.Reservation, error)
	ListByUser(userID string) ([]db.Reservation, error)
	List(date, status string) ([]db.Reservation, error)
	UpdateStatus(id, status string, updatedAt time.Time) error
}

type reservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(database *sql.DB) ReservationRepository {
	return &reservationRepository{db: database}
}

func (r *reservationRepository) Create(res *db.Reservation) error {
	query := `
		INSERT INTO reservations
		(id, user_id, parking_space_id, vehicle_id, start_time, end_time,
		 reservation_type, hourly_rate, whole_day_rate, discount, tax, total_price,
		 discount_note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Exec(query,
		res.ID,
		res.UserID,
		res.ParkingSpaceID,
		res.VehicleID,
		res.StartTime,
		res.EndTime,
		res.ReservationType,
		res.HourlyRate,
		res.WholeDayRate,
		res.Discount,
		res.Tax,
		res.TotalPrice,
		res.DiscountNote,
		res.Status,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *reservationRepository) GetByID(id string) (*db.Reservation, error) {
	query := `SELECT` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return res, nil
}

func (r *reservationRepository) ListByUserVehicleSpace(userID, vehicleID, spaceID string) ([]db.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1 AND vehicle_id = $2 AND parking_space_id = $3
		  AND status IN ($4, $5)`
	return r.queryReservations(query, userID, vehicleID, spaceID, db.ReservationCreated, db.ReservationPaid)
}

func (r *reservationRepository) ListByUser(userID string) ([]db.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryReservations(query, userID)
}

func (r *reservationRepository) List(date, status string) ([]db.Reservation, error) {
	query := `SELECT` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += " AND DATE(start_time) = $" + strconv.Itoa(idx)
		args = append(args, date)
		idx++
	}
	if status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	query += " ORDER BY start_time DESC"

	return r.queryReservations(query, args...)
}

func (r *reservationRepository) UpdateStatus(id, status string, updatedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reservation %s status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reservationRepository) queryReservations(query string, args ...interface{}) ([]db.Reservation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*db.Reservation, error) {
	var res db.Reservation
	err := row.Scan(
		&res.ID, &res.UserID, &res.ParkingSpaceID, &res.VehicleID,
		&res.StartTime, &res.EndTime, &res.ReservationType,
		&res.HourlyRate, &res.WholeDayRate, &res.Discount, &res.Tax, &res.TotalPrice,
		&res.DiscountNote, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
