package entities

import "time"

type AvailabilityRequest struct {
	ParkingSpaceID string    `json:"parking_space_id"`
	VehicleID      string    `json:"vehicle_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}
