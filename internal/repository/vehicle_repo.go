package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"parkeo/internal/db"
)

type VehicleRepository interface {
	GetByID(id string) (*db.Vehicle, error)
}

// UserDirectory is the read interface onto the external identity provider's
// user store. The core only needs contact details for notifications.
type UserDirectory interface {
	GetContact(userID string) (email, phone string, err error)
}

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(database *sql.DB) VehicleRepository {
	return &vehicleRepository{db: database}
}

func (r *vehicleRepository) GetByID(id string) (*db.Vehicle, error) {
	query := `
		SELECT id, user_id, vehicle_type, year_make_model, color, plate_number, created_at, updated_at
		FROM vehicles WHERE id = $1`

	var v db.Vehicle
	err := r.db.QueryRow(query, id).Scan(
		&v.ID, &v.UserID, &v.VehicleType, &v.YearMakeModel, &v.Color,
		&v.PlateNumber, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vehicle %s: %w", id, err)
	}
	return &v, nil
}

type userDirectory struct {
	db *sql.DB
}

func NewUserDirectory(database *sql.DB) UserDirectory {
	return &userDirectory{db: database}
}

func (r *userDirectory) GetContact(userID string) (string, string, error) {
	var email, phone sql.NullString
	err := r.db.QueryRow(
		`SELECT email, phone_number FROM users WHERE id = $1`, userID,
	).Scan(&email, &phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("get contact for user %s: %w", userID, err)
	}
	return email.String, phone.String, nil
}
