package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"parkeo/internal/db"
)

type SpaceRepository interface {
	GetByID(id string) (*db.ParkingSpace, error)
	List() ([]db.ParkingSpace, error)
}

type spaceRepository struct {
	db *sql.DB
}

func NewSpaceRepository(database *sql.DB) SpaceRepository {
	return &spaceRepository{db: database}
}

func (r *spaceRepository) GetByID(id string) (*db.ParkingSpace, error) {
	query := `
		SELECT id, city, establishment_name, address, total_spaces, available_spaces,
		       hourly_rate, whole_day_rate, availability_status, is_deleted, created_at, updated_at
		FROM parking_spaces WHERE id = $1`

	var s db.ParkingSpace
	err := r.db.QueryRow(query, id).Scan(
		&s.ID, &s.City, &s.EstablishmentName, &s.Address, &s.TotalSpaces, &s.AvailableSpaces,
		&s.HourlyRate, &s.WholeDayRate, &s.AvailabilityStatus, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get parking space %s: %w", id, err)
	}
	return &s, nil
}

func (r *spaceRepository) List() ([]db.ParkingSpace, error) {
	query := `
		SELECT id, city, establishment_name, address, total_spaces, available_spaces,
		       hourly_rate, whole_day_rate, availability_status, is_deleted, created_at, updated_at
		FROM parking_spaces WHERE is_deleted = false ORDER BY establishment_name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list parking spaces: %w", err)
	}
	defer rows.Close()

	var spaces []db.ParkingSpace
	for rows.Next() {
		var s db.ParkingSpace
		err := rows.Scan(
			&s.ID, &s.City, &s.EstablishmentName, &s.Address, &s.TotalSpaces, &s.AvailableSpaces,
			&s.HourlyRate, &s.WholeDayRate, &s.AvailabilityStatus, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan parking space: %w", err)
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}
