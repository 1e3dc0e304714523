package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"parkeo/internal/clock"
	"parkeo/internal/dates"
	"parkeo/internal/db"
	"parkeo/internal/entities"
	apperr "parkeo/internal/errors"
	"parkeo/internal/gateway"
	"parkeo/internal/repository"
)

const defaultPaymentMethod = "maya"

// ReservationService owns the reservation lifecycle: availability checks,
// booking (reservation + pending payment + checkout session), explicit
// cancellation, and operator completion. Capacity is never consumed here;
// that happens in the payment reconciler once money is confirmed.
type ReservationService struct {
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	slots        repository.SlotRepository
	spaces       repository.SpaceRepository
	vehicles     repository.VehicleRepository
	gateways     map[string]gateway.Gateway
	sender       *SenderService
	clock        clock.Clock
	frontendURL  string
}

func NewReservationService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	slots repository.SlotRepository,
	spaces repository.SpaceRepository,
	vehicles repository.VehicleRepository,
	gateways map[string]gateway.Gateway,
	sender *SenderService,
	clk clock.Clock,
	frontendURL string,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		payments:     payments,
		slots:        slots,
		spaces:       spaces,
		vehicles:     vehicles,
		gateways:     gateways,
		sender:       sender,
		clock:        clk,
		frontendURL:  frontendURL,
	}
}

// CheckAvailability runs the admission checks without reserving anything.
// A nil return means the window is admissible; rejections carry a reason.
func (s *ReservationService) CheckAvailability(userID string, req entities.AvailabilityRequest) error {
	if err := s.validateWindow(req.StartTime, req.EndTime); err != nil {
		return err
	}
	if _, err := s.loadOpenSpace(req.ParkingSpaceID); err != nil {
		return err
	}
	return s.checkOverlap(userID, req.VehicleID, req.ParkingSpaceID, req.StartTime, req.EndTime)
}

// Book creates a CREATED reservation with a PENDING payment and opens a
// checkout session at the gateway. The reference number shared with the
// gateway is the reservation ID. No capacity is consumed yet.
func (s *ReservationService) Book(ctx context.Context, userID string, req *entities.ReservationRequest) (*entities.CheckoutResponse, error) {
	if err := s.validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := validatePricing(req); err != nil {
		return nil, err
	}

	space, err := s.loadOpenSpace(req.ParkingSpaceID)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.GetByID(req.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("vehicle not found")
		}
		return nil, err
	}
	if vehicle.UserID != userID {
		return nil, apperr.NotFound("vehicle not found")
	}

	if err := s.checkOverlap(userID, req.VehicleID, req.ParkingSpaceID, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	// Advisory read of the ledger: reject bookings for dates that are
	// already full, but take no unit. The binding consume happens when the
	// payment settles.
	for _, date := range dates.Between(req.StartTime, req.EndTime) {
		count, err := s.slots.Count(space.ID, date)
		if err != nil {
			return nil, err
		}
		if count >= space.AvailableSpaces {
			return nil, apperr.Conflict(fmt.Sprintf("no available slots left on %s", date))
		}
	}

	method := req.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}
	gw, ok := s.gateways[method]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unsupported payment method %q", method))
	}

	now := s.clock.Now()
	res := &db.Reservation{
		ID:              uuid.NewString(),
		UserID:          userID,
		ParkingSpaceID:  req.ParkingSpaceID,
		VehicleID:       req.VehicleID,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		ReservationType: req.ReservationType,
		HourlyRate:      req.HourlyRate,
		WholeDayRate:    req.WholeDayRate,
		Discount:        req.Discount,
		Tax:             req.Tax,
		TotalPrice:      req.TotalPrice,
		Status:          db.ReservationCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.DiscountNote != "" {
		res.DiscountNote.String = req.DiscountNote
		res.DiscountNote.Valid = true
	}

	// The rows go in before the checkout opens: a session the customer can
	// pay must always have a local payment to reconcile against.
	if err := s.reservations.Create(res); err != nil {
		return nil, err
	}

	referenceNumber := res.ID
	payment := &db.Payment{
		ID:              uuid.NewString(),
		ReservationID:   res.ID,
		PaymentMethod:   method,
		Amount:          res.TotalPrice,
		Status:          db.PaymentPending,
		ReferenceNumber: referenceNumber,
		PaymentDate:     now,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, err
	}

	checkout, err := gw.OpenCheckout(ctx, gateway.CheckoutRequest{
		Amount:          res.TotalPrice,
		Currency:        "PHP",
		ReferenceNumber: referenceNumber,
		Description:     "Parking reservation " + res.ID,
		SuccessURL:      s.frontendURL + "/payment/success?requestReferenceNumber=" + referenceNumber,
		FailureURL:      s.frontendURL + "/payment/failure?requestReferenceNumber=" + referenceNumber,
		CancelURL:       s.frontendURL + "/payment/cancel?requestReferenceNumber=" + referenceNumber,
	})
	if err != nil {
		log.Printf("Error opening checkout for reservation %s: %v", res.ID, err)
		// No session was opened, so the booking can never settle. Close it
		// out instead of leaving a dangling CREATED reservation.
		if uerr := s.reservations.UpdateStatus(res.ID, db.ReservationCancelled, now); uerr != nil {
			log.Printf("Error cancelling reservation %s after checkout failure: %v", res.ID, uerr)
		}
		if ferr := s.payments.FailAllForReservation(res.ID, now); ferr != nil {
			log.Printf("Error failing payments for reservation %s after checkout failure: %v", res.ID, ferr)
		}
		return nil, apperr.ExternalUnavailable("payment gateway is unavailable")
	}

	if err := s.payments.SetGatewaySession(payment.ID, checkout.SessionID); err != nil {
		return nil, err
	}

	return &entities.CheckoutResponse{
		ReservationID: res.ID,
		CheckoutURL:   checkout.URL,
	}, nil
}

// Cancel is the explicit user/operator cancellation, legal only from
// CREATED. Every associated payment attempt cascades to failed. The ledger
// is never touched: capacity was not consumed at CREATED.
func (s *ReservationService) Cancel(reservationID string) (*entities.ReservationStatusResponse, error) {
	res, err := s.reservations.GetByID(reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("reservation not found")
		}
		return nil, err
	}
	if res.Status != db.ReservationCreated {
		return nil, apperr.Invariant("only reservations with created status can be cancelled")
	}

	now := s.clock.Now()
	if err := s.reservations.UpdateStatus(res.ID, db.ReservationCancelled, now); err != nil {
		return nil, err
	}
	if err := s.payments.FailAllForReservation(res.ID, now); err != nil {
		return nil, err
	}

	s.notify(res, db.ReservationCancelled)

	return &entities.ReservationStatusResponse{
		ReservationID: res.ID,
		Status:        db.ReservationCancelled,
		UpdatedAt:     now,
	}, nil
}

// Complete is the operator-side close-out, legal only from PAID. Each
// calendar date the window consumed is released back to the ledger.
func (s *ReservationService) Complete(reservationID string) (*entities.ReservationStatusResponse, error) {
	res, err := s.reservations.GetByID(reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("reservation not found")
		}
		return nil, err
	}
	if res.Status != db.ReservationPaid {
		return nil, apperr.Invariant("only paid reservations can be marked as completed")
	}

	space, err := s.spaces.GetByID(res.ParkingSpaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("related parking space not found")
		}
		return nil, err
	}

	for _, date := range dates.Between(res.StartTime, res.EndTime) {
		if err := s.slots.Release(space.ID, date); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.reservations.UpdateStatus(res.ID, db.ReservationCompleted, now); err != nil {
		return nil, err
	}

	s.notify(res, db.ReservationCompleted)

	return &entities.ReservationStatusResponse{
		ReservationID: res.ID,
		Status:        db.ReservationCompleted,
		UpdatedAt:     now,
	}, nil
}

// History projects a driver's reservations into display rows.
func (s *ReservationService) History(userID string) ([]entities.HistoryItem, error) {
	reservations, err := s.reservations.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	spaceNames := map[string]string{}
	vehicles := map[string]*entities.VehicleView{}

	items := make([]entities.HistoryItem, 0, len(reservations))
	for i := range reservations {
		res := &reservations[i]

		name, ok := spaceNames[res.ParkingSpaceID]
		if !ok {
			if space, err := s.spaces.GetByID(res.ParkingSpaceID); err == nil {
				name = space.EstablishmentName
			} else {
				name = "Unknown"
			}
			spaceNames[res.ParkingSpaceID] = name
		}

		vehicle, ok := vehicles[res.VehicleID]
		if !ok {
			if v, err := s.vehicles.GetByID(res.VehicleID); err == nil {
				vehicle = entities.NewVehicleView(v)
			}
			vehicles[res.VehicleID] = vehicle
		}

		items = append(items, entities.HistoryItem{
			ID:            res.ID,
			Establishment: name,
			Vehicle:       vehicle,
			Date:          historyDateLabel(res.StartTime, res.EndTime),
			Time:          historyTimeLabel(res),
			Duration:      historyDurationLabel(res.StartTime, res.EndTime),
			Amount:        FormatPesos(res.TotalPrice),
			Status:        res.Status,
		})
	}
	return items, nil
}

func (s *ReservationService) ListSpaces() ([]entities.SpaceView, error) {
	spaces, err := s.spaces.List()
	if err != nil {
		return nil, err
	}
	views := make([]entities.SpaceView, 0, len(spaces))
	for i := range spaces {
		views = append(views, *entities.NewSpaceView(&spaces[i]))
	}
	return views, nil
}

func (s *ReservationService) SlotsBySpace(spaceID string) ([]entities.SlotView, error) {
	if _, err := s.spaces.GetByID(spaceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("parking space not found")
		}
		return nil, err
	}
	slots, err := s.slots.ListBySpace(spaceID)
	if err != nil {
		return nil, err
	}
	views := make([]entities.SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, entities.SlotView{
			ParkingSpaceID: slot.ParkingSpaceID,
			Date:           slot.Date,
			ReservedCount:  slot.ReservedCount,
		})
	}
	return views, nil
}

func (s *ReservationService) validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !end.After(start) {
		return apperr.Validation("end_time must be after start_time")
	}
	today := dates.DayOf(s.clock.Now())
	if dates.DayOf(start).Before(today) {
		return apperr.Validation("reservation date cannot be in the past")
	}
	return nil
}

func (s *ReservationService) loadOpenSpace(spaceID string) (*db.ParkingSpace, error) {
	space, err := s.spaces.GetByID(spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("parking space not found")
		}
		return nil, err
	}
	if space.IsDeleted {
		return nil, apperr.NotFound("parking space not found")
	}
	if space.AvailabilityStatus == db.SpaceClosed {
		return nil, apperr.Conflict("this parking space is currently closed for reservation")
	}
	return space, nil
}

// checkOverlap rejects windows intersecting any of the user's existing
// reservations for the same vehicle and space. Intervals are half-open:
// a reservation ending exactly when another starts does not overlap.
func (s *ReservationService) checkOverlap(userID, vehicleID, spaceID string, newStart, newEnd time.Time) error {
	existing, err := s.reservations.ListByUserVehicleSpace(userID, vehicleID, spaceID)
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].StartTime.Before(newEnd) && existing[i].EndTime.After(newStart) {
			return apperr.Conflict("this vehicle already has a reservation in this parking space that overlaps with the selected time")
		}
	}
	return nil
}

func (s *ReservationService) notify(res *db.Reservation, status string) {
	if s.sender == nil {
		return
	}
	establishment := ""
	if space, err := s.spaces.GetByID(res.ParkingSpaceID); err == nil {
		establishment = space.EstablishmentName
	}
	s.sender.NotifyReservation(res, establishment, status)
}

func validatePricing(req *entities.ReservationRequest) error {
	if req.ReservationType != db.TypeHourly && req.ReservationType != db.TypeWholeDay {
		return apperr.Validation("reservation_type must be hourly or whole_day")
	}
	if req.HourlyRate < 0 || req.WholeDayRate < 0 || req.Discount < 0 || req.Tax < 0 || req.TotalPrice < 0 {
		return apperr.Validation("monetary fields must be non-negative")
	}
	return nil
}

// FormatPesos renders centavos as a peso display amount.
func FormatPesos(centavos int64) string {
	return fmt.Sprintf("₱%.2f", float64(centavos)/100)
}

func historyDurationLabel(start, end time.Time) string {
	hours := int(end.Sub(start).Round(time.Hour).Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

func historyTimeLabel(res *db.Reservation) string {
	if res.ReservationType == db.TypeWholeDay {
		return "12:00 AM - 11:59 PM"
	}
	return res.StartTime.UTC().Format("3:04 PM") + " - " + res.EndTime.UTC().Format("3:04 PM")
}

func historyDateLabel(start, end time.Time) string {
	startDay := dates.DayOf(start)
	endDay := dates.DayOf(end)
	if startDay.Equal(endDay) {
		return startDay.Format("January 2, 2006")
	}
	return startDay.Format("January 2, 2006") + " to " + endDay.Format("January 2, 2006")
}
