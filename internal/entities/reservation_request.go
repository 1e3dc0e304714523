package entities

import "time"

// ReservationRequest is the booking payload. Monetary fields are centavos.
type ReservationRequest struct {
	ParkingSpaceID  string    `json:"parking_space_id"`
	VehicleID       string    `json:"vehicle_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ReservationType string    `json:"reservation_type"`
	HourlyRate      int64     `json:"hourly_rate"`
	WholeDayRate    int64     `json:"whole_day_rate"`
	Discount        int64     `json:"discount"`
	Tax             int64     `json:"tax"`
	TotalPrice      int64     `json:"total_price"`
	DiscountNote    string    `json:"discount_note,omitempty"`
	PaymentMethod   string    `json:"payment_method"`
}

// CheckoutResponse is returned by a successful booking: the reservation is
// CREATED and the caller must finish payment at the checkout URL.
type CheckoutResponse struct {
	ReservationID string `json:"reservation_id"`
	CheckoutURL   string `json:"checkout_url"`
}

// ReservationStatusResponse reports the new status after a transition.
type ReservationStatusResponse struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}
