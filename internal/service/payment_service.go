package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"parkeo/internal/clock"
	"parkeo/internal/dates"
	"parkeo/internal/db"
	apperr "parkeo/internal/errors"
	"parkeo/internal/gateway"
	"parkeo/internal/repository"
)

// PaymentService reconciles the gateway's authoritative status for a
// reference number into local reservation, payment, and ledger state.
// Capacity is consumed here, at the moment money is confirmed, never at
// booking time.
type PaymentService struct {
	payments     repository.PaymentRepository
	reservations repository.ReservationRepository
	spaces       repository.SpaceRepository
	settlements  repository.SettlementRepository
	gateways     map[string]gateway.Gateway
	sender       *SenderService
	clock        clock.Clock
}

func NewPaymentService(
	payments repository.PaymentRepository,
	reservations repository.ReservationRepository,
	spaces repository.SpaceRepository,
	settlements repository.SettlementRepository,
	gateways map[string]gateway.Gateway,
	sender *SenderService,
	clk clock.Clock,
) *PaymentService {
	return &PaymentService{
		payments:     payments,
		reservations: reservations,
		spaces:       spaces,
		settlements:  settlements,
		gateways:     gateways,
		sender:       sender,
		clock:        clk,
	}
}

// Reconcile queries the gateway for the reference number and applies exactly
// one lifecycle transition, then returns the gateway's raw payload. Safe to
// call repeatedly and concurrently: the settlement repository serializes the
// paid transition per payment, so a retried confirmation never consumes
// capacity twice. A gateway lookup failure mutates nothing and is retryable.
func (s *PaymentService) Reconcile(ctx context.Context, referenceNumber string, cancelRequested bool) (*gateway.Transaction, error) {
	if referenceNumber == "" {
		return nil, apperr.Validation("reference number is required")
	}

	payment, err := s.payments.GetByReferenceNumber(referenceNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, err
	}

	reservation, err := s.reservations.GetByID(payment.ReservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("reservation not found")
		}
		return nil, err
	}

	space, err := s.spaces.GetByID(reservation.ParkingSpaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("parking space not found")
		}
		return nil, err
	}

	gw, ok := s.gateways[payment.PaymentMethod]
	if !ok {
		return nil, fmt.Errorf("no gateway configured for payment method %q", payment.PaymentMethod)
	}

	tx, err := gw.GetStatus(ctx, referenceNumber, payment.GatewaySessionID)
	if err != nil {
		log.Printf("Gateway lookup failed for reference %s: %v", referenceNumber, err)
		return nil, apperr.ExternalUnavailable("transaction not found")
	}

	now := s.clock.Now()

	// A cancel request abandons a pending checkout. Once the payment has
	// settled the reservation holds ledger units and is no longer
	// cancellable here.
	if cancelRequested {
		if payment.Status == db.PaymentPending {
			if err := s.payments.MarkFailed(payment.ID, now); err != nil {
				return nil, err
			}
		}
		if payment.Status != db.PaymentCompleted && !isTerminal(reservation.Status) {
			if err := s.reservations.UpdateStatus(reservation.ID, db.ReservationCancelled, now); err != nil {
				return nil, err
			}
			s.notify(reservation, space, db.ReservationCancelled)
		}
		return tx, nil
	}

	switch {
	case tx.Status == gateway.StatusSuccess &&
		payment.Status != db.PaymentCompleted &&
		reservation.Status == db.ReservationCreated:

		if err := s.settle(payment, reservation, space, tx); err != nil {
			return nil, err
		}

	case (tx.Status == gateway.StatusFailed || tx.Status == gateway.StatusAuthFailed) &&
		payment.Status != db.PaymentCompleted &&
		!isTerminal(reservation.Status):

		failedAt := tx.UpdatedAt
		if failedAt.IsZero() {
			failedAt = now
		}
		if payment.Status != db.PaymentFailed {
			if err := s.payments.MarkFailed(payment.ID, failedAt); err != nil {
				return nil, err
			}
		}
		if err := s.reservations.UpdateStatus(reservation.ID, db.ReservationCancelled, now); err != nil {
			return nil, err
		}
		s.notify(reservation, space, db.ReservationCancelled)
	}

	return tx, nil
}

// settle runs the paid transition. Bookings are cheap and unlimited at
// CREATED; capacity is gated here, inside the settlement transaction, so a
// full date aborts the whole transition with no status change and no dates
// left consumed.
func (s *PaymentService) settle(payment *db.Payment, reservation *db.Reservation, space *db.ParkingSpace, tx *gateway.Transaction) error {
	now := s.clock.Now()
	settledAt := tx.UpdatedAt
	if settledAt.IsZero() {
		settledAt = now
	}

	result, fullDate, err := s.settlements.SettlePayment(repository.SettlementParams{
		PaymentID:     payment.ID,
		ReservationID: reservation.ID,
		SpaceID:       space.ID,
		Dates:         dates.Between(reservation.StartTime, reservation.EndTime),
		Ceiling:       space.AvailableSpaces,
		ReceiptNumber: tx.ReceiptNumber,
		SettledAt:     settledAt,
		UpdatedAt:     now,
	})
	if err != nil {
		return err
	}

	switch result {
	case repository.SettlementApplied:
		s.notify(reservation, space, db.ReservationPaid)
	case repository.SettlementDateFull:
		log.Printf("Reservation %s: slot on %s fully reserved before payment was confirmed", reservation.ID, fullDate)
		return apperr.Conflict(fmt.Sprintf("slot on %s already fully reserved before payment was confirmed", fullDate))
	case repository.SettlementStale:
		// A concurrent reconcile settled first, or the reservation moved
		// on while the gateway was queried. Nothing to do.
	}
	return nil
}

func (s *PaymentService) notify(res *db.Reservation, space *db.ParkingSpace, status string) {
	if s.sender == nil {
		return
	}
	s.sender.NotifyReservation(res, space.EstablishmentName, status)
}

func isTerminal(status string) bool {
	return status == db.ReservationCompleted || status == db.ReservationCancelled
}
