package service

import (
	"fmt"
	"log"
	"time"

	"parkeo/internal/clock"
	"parkeo/internal/dates"
	"parkeo/internal/db"
	"parkeo/internal/repository"
)

// JobService runs the scheduled sweeps: abandoning stale unpaid bookings and
// auto-completing paid reservations past their end time.
type JobService struct {
	jobs         repository.JobRepository
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	spaces       repository.SpaceRepository
	slots        repository.SlotRepository
	clock        clock.Clock
}

func NewJobService(
	jobs repository.JobRepository,
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	spaces repository.SpaceRepository,
	slots repository.SlotRepository,
	clk clock.Clock,
) *JobService {
	return &JobService{
		jobs:         jobs,
		reservations: reservations,
		payments:     payments,
		spaces:       spaces,
		slots:        slots,
		clock:        clk,
	}
}

// ExpireStaleCreated cancels CREATED reservations whose checkout was opened
// more than maxAge ago and never settled, cascading their payments to
// failed. The ledger never held units for them.
func (s *JobService) ExpireStaleCreated(maxAge time.Duration) error {
	now := s.clock.Now()
	cutoff := now.Add(-maxAge)

	ids, err := s.jobs.StaleCreatedReservationIDs(cutoff)
	if err != nil {
		return fmt.Errorf("cron job: failed to get stale created reservations: %w", err)
	}
	if len(ids) == 0 {
		log.Println("Cron Job: No stale created reservations found.")
		return nil
	}

	log.Printf("Cron Job: Found %d stale created reservations to cancel. IDs: %v", len(ids), ids)

	if err := s.jobs.UpdateReservationStatuses(ids, db.ReservationCancelled, now); err != nil {
		return fmt.Errorf("cron job: failed to cancel stale reservations: %w", err)
	}
	for _, id := range ids {
		if err := s.payments.FailAllForReservation(id, now); err != nil {
			log.Printf("Cron Job: failed to fail payments for reservation %s: %v", id, err)
		}
	}
	return nil
}

// CompleteFinishedReservations marks PAID reservations past their end time
// as COMPLETED, releasing each consumed ledger date.
func (s *JobService) CompleteFinishedReservations() error {
	now := s.clock.Now()

	reservations, err := s.jobs.PaidReservationsPastEnd(now)
	if err != nil {
		return fmt.Errorf("cron job: failed to get paid reservations past end time: %w", err)
	}
	if len(reservations) == 0 {
		log.Println("Cron Job: No paid reservations found past their end time.")
		return nil
	}

	completed := 0
	for i := range reservations {
		res := &reservations[i]
		for _, date := range dates.Between(res.StartTime, res.EndTime) {
			if err := s.slots.Release(res.ParkingSpaceID, date); err != nil {
				log.Printf("Cron Job: failed to release slot %s/%s for reservation %s: %v",
					res.ParkingSpaceID, date, res.ID, err)
			}
		}
		if err := s.reservations.UpdateStatus(res.ID, db.ReservationCompleted, now); err != nil {
			log.Printf("Cron Job: failed to complete reservation %s: %v", res.ID, err)
			continue
		}
		completed++
	}

	log.Printf("Cron Job: Completed %d of %d finished reservations.", completed, len(reservations))
	return nil
}
