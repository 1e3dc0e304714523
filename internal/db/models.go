package db

import (
	"database/sql"
	"time"
)

// Reservation lifecycle statuses. Transitions are guarded in the service
// layer: created -> paid -> completed, created -> cancelled, and
// paid -> cancelled (reconciler-driven failure only).
const (
	ReservationCreated   = "created"
	ReservationPaid      = "paid"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Parking space availability statuses.
const (
	SpaceOpen    = "open"
	SpaceLimited = "limited"
	SpaceClosed  = "closed"
)

// Reservation kinds.
const (
	TypeHourly   = "hourly"
	TypeWholeDay = "whole_day"
)

type ParkingSpace struct {
	ID                 string
	City               string
	EstablishmentName  string
	Address            string
	TotalSpaces        int
	AvailableSpaces    int
	HourlyRate         int64
	WholeDayRate       int64
	AvailabilityStatus string
	IsDeleted          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Vehicle struct {
	ID            string
	UserID        string
	VehicleType   string
	YearMakeModel string
	Color         string
	PlateNumber   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reservation monetary fields are fixed-point centavos.
type Reservation struct {
	ID              string
	UserID          string
	ParkingSpaceID  string
	VehicleID       string
	StartTime       time.Time
	EndTime         time.Time
	ReservationType string
	HourlyRate      int64
	WholeDayRate    int64
	Discount        int64
	Tax             int64
	TotalPrice      int64
	DiscountNote    sql.NullString
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payment rows are never deleted; a cancelled reservation keeps its failed
// payment attempts. ReferenceNumber is the gateway correlation key and is
// derived from the reservation ID at creation, never reused.
type Payment struct {
	ID               string
	ReservationID    string
	PaymentMethod    string
	Amount           int64
	Status           string
	ReceiptNumber    sql.NullString
	ReferenceNumber  string
	GatewaySessionID string
	PaymentDate      time.Time
}

// ReservedSlot is a capacity ledger entry: committed (paid) units for one
// parking space on one calendar day. Unique on (parking_space_id, date).
// Entries are created lazily and retained as a historical ledger.
type ReservedSlot struct {
	ID             int64
	ParkingSpaceID string
	Date           string
	ReservedCount  int
}

type Admin struct {
	ID           int
	Email        string
	PasswordHash string
}
