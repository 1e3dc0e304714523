package entities

import (
	"time"

	"parkeo/internal/db"
)

// Projection structs for response shapes. Each is built once per entity
// instead of copying fields ad hoc at the handler level.

type SpaceView struct {
	ID                 string `json:"id"`
	City               string `json:"city"`
	EstablishmentName  string `json:"establishment_name"`
	Address            string `json:"address"`
	TotalSpaces        int    `json:"total_spaces"`
	AvailableSpaces    int    `json:"available_spaces"`
	HourlyRate         int64  `json:"hourly_rate"`
	WholeDayRate       int64  `json:"whole_day_rate"`
	AvailabilityStatus string `json:"availability_status"`
}

func NewSpaceView(s *db.ParkingSpace) *SpaceView {
	return &SpaceView{
		ID:                 s.ID,
		City:               s.City,
		EstablishmentName:  s.EstablishmentName,
		Address:            s.Address,
		TotalSpaces:        s.TotalSpaces,
		AvailableSpaces:    s.AvailableSpaces,
		HourlyRate:         s.HourlyRate,
		WholeDayRate:       s.WholeDayRate,
		AvailabilityStatus: s.AvailabilityStatus,
	}
}

type VehicleView struct {
	ID            string `json:"id"`
	VehicleType   string `json:"vehicle_type"`
	YearMakeModel string `json:"year_make_model"`
	Color         string `json:"color"`
	PlateNumber   string `json:"plate_number"`
}

func NewVehicleView(v *db.Vehicle) *VehicleView {
	return &VehicleView{
		ID:            v.ID,
		VehicleType:   v.VehicleType,
		YearMakeModel: v.YearMakeModel,
		Color:         v.Color,
		PlateNumber:   v.PlateNumber,
	}
}

type PaymentView struct {
	ID              string    `json:"id"`
	ReservationID   string    `json:"reservation_id"`
	PaymentMethod   string    `json:"payment_method"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	ReceiptNumber   string    `json:"receipt_number,omitempty"`
	ReferenceNumber string    `json:"reference_number"`
	PaymentDate     time.Time `json:"payment_date"`
}

func NewPaymentView(p *db.Payment) *PaymentView {
	view := &PaymentView{
		ID:              p.ID,
		ReservationID:   p.ReservationID,
		PaymentMethod:   p.PaymentMethod,
		Amount:          p.Amount,
		Status:          p.Status,
		ReferenceNumber: p.ReferenceNumber,
		PaymentDate:     p.PaymentDate,
	}
	if p.ReceiptNumber.Valid {
		view.ReceiptNumber = p.ReceiptNumber.String
	}
	return view
}

type ReservationView struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	ReservationType string        `json:"reservation_type"`
	TotalPrice      int64         `json:"total_price"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Vehicle         *VehicleView  `json:"vehicle,omitempty"`
	ParkingSpace    *SpaceView    `json:"parking_space,omitempty"`
	Payments        []PaymentView `json:"payments,omitempty"`
}

func NewReservationView(r *db.Reservation) *ReservationView {
	return &ReservationView{
		ID:              r.ID,
		UserID:          r.UserID,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		ReservationType: r.ReservationType,
		TotalPrice:      r.TotalPrice,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ReservationsList wraps an admin listing.
type ReservationsList struct {
	Total        int               `json:"total"`
	Reservations []ReservationView `json:"reservations"`
}

// PaymentWithReservation is the admin payments listing row.
type PaymentWithReservation struct {
	PaymentView
	Reservation *ReservationView `json:"reservation"`
}

// HistoryItem is one row of a driver's reservation history.
type HistoryItem struct {
	ID            string       `json:"id"`
	Establishment string       `json:"establishment"`
	Vehicle       *VehicleView `json:"vehicle"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	Duration      string       `json:"duration"`
	Amount        string       `json:"amount"`
	Status        string       `json:"status"`
}

// SlotView is one capacity-ledger entry for a space.
type SlotView struct {
	ParkingSpaceID string `json:"parking_space_id"`
	Date           string `json:"date"`
	ReservedCount  int    `json:"reserved_count"`
}
