package entities

// ReservationEmailData feeds the notification templates.
type ReservationEmailData struct {
	ReservationID      string
	Establishment      string
	PlateNumber        string
	StartTimeFormatted string
	EndTimeFormatted   string
	Amount             string
	Status             string
	CurrentYear        int
}
