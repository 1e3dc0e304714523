package service

import (
	"fmt"
	"log"
	"time"

	"parkeo/internal/db"
	"parkeo/internal/entities"
	"parkeo/internal/repository"
)

// SenderService turns reservation status changes into email and SMS
// notifications. Delivery is fire-and-forget: a failed send is logged, never
// surfaced to the triggering operation.
type SenderService struct {
	users repository.UserDirectory
}

func NewSenderService(users repository.UserDirectory) *SenderService {
	return &SenderService{users: users}
}

func (s *SenderService) NotifyReservation(res *db.Reservation, establishment, status string) {
	email, phone, err := s.users.GetContact(res.UserID)
	if err != nil {
		log.Printf("WARNING: no contact details for user %s, skipping notification: %v", res.UserID, err)
		return
	}

	data := entities.ReservationEmailData{
		ReservationID:      res.ID,
		Establishment:      establishment,
		StartTimeFormatted: res.StartTime.UTC().Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   res.EndTime.UTC().Format("02 Jan 2006 15:04 MST"),
		Amount:             FormatPesos(res.TotalPrice),
		Status:             status,
		CurrentYear:        time.Now().UTC().Year(),
	}

	if email != "" {
		go s.sendEmail(email, data)
	}
	if phone != "" {
		go s.sendSMS(phone, data)
	}
}

func (s *SenderService) sendEmail(toEmail string, data entities.ReservationEmailData) {
	subject := fmt.Sprintf("Your Parkeo reservation is %s - %s", data.Status, data.ReservationID)
	body := fmt.Sprintf(
		"Hello,\n\nYour reservation at %s is %s.\n\n"+
			"Reservation Details:\n"+
			"Reservation ID: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Amount: %s\n\n"+
			"Thank you for choosing Parkeo.\n\n"+
			"Parkeo. All rights reserved.",
		data.Establishment, data.Status, data.ReservationID,
		data.StartTimeFormatted, data.EndTimeFormatted, data.Amount,
	)

	if err := SendEmailWithSendGrid(toEmail, subject, body); err != nil {
		log.Printf("WARNING: email notification for reservation %s failed: %v", data.ReservationID, err)
	}
}

func (s *SenderService) sendSMS(toPhone string, data entities.ReservationEmailData) {
	message := fmt.Sprintf("Parkeo: Reservation %s is %s!\nCheck-in: %s.\nMore details in your email.",
		data.ReservationID, data.Status, data.StartTimeFormatted)

	if err := SendSMS(toPhone, message); err != nil {
		log.Printf("WARNING: SMS notification for reservation %s failed: %v", data.ReservationID, err)
	}
}
