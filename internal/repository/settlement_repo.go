package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkeo/internal/db"
)

// SettlementResult is the outcome of a settlement attempt.
type SettlementResult int

const (
	// SettlementApplied: every covered date consumed one ledger unit, the
	// payment completed, the reservation moved to paid.
	SettlementApplied SettlementResult = iota
	// SettlementStale: the payment or reservation had already left the
	// pending/created pair; nothing was changed.
	SettlementStale
	// SettlementDateFull: a covered date had no capacity left; nothing was
	// changed.
	SettlementDateFull
)

// SettlementParams carries one settlement attempt.
type SettlementParams struct {
	PaymentID     string
	ReservationID string
	SpaceID       string
	Dates         []string
	Ceiling       int
	ReceiptNumber string
	SettledAt     time.Time
	UpdatedAt     time.Time
}

// SettlementRepository applies the paid transition exactly once per payment.
// The whole transition runs in a single transaction holding a row lock on
// the payment, so a retried confirmation for the same reference number
// either settles first itself or blocks and then observes the completed
// payment.
type SettlementRepository interface {
	// SettlePayment consumes one ledger unit per covered date and moves the
	// payment to completed and the reservation to paid, all or nothing. The
	// second return value names the full date when the result is
	// SettlementDateFull.
	SettlePayment(p SettlementParams) (SettlementResult, string, error)
}

type settlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(database *sql.DB) SettlementRepository {
	return &settlementRepository{db: database}
}

func (r *settlementRepository) SettlePayment(p SettlementParams) (SettlementResult, string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return SettlementStale, "", fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback()

	// The row lock serializes concurrent settlements of the same payment.
	// A second caller blocks here until the first commits, then re-reads a
	// non-pending status and leaves without consuming.
	var status string
	err = tx.QueryRow(`SELECT status FROM payments WHERE id = $1 FOR UPDATE`, p.PaymentID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SettlementStale, "", ErrNotFound
		}
		return SettlementStale, "", fmt.Errorf("lock payment %s: %w", p.PaymentID, err)
	}
	if status != db.PaymentPending {
		return SettlementStale, "", nil
	}

	consume := `
		INSERT INTO reserved_slots (parking_space_id, date, reserved_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (parking_space_id, date) DO UPDATE
		SET reserved_count = reserved_slots.reserved_count + 1
		WHERE reserved_slots.reserved_count < $3
		RETURNING reserved_count`

	for _, date := range p.Dates {
		if p.Ceiling <= 0 {
			return SettlementDateFull, date, nil
		}
		var count int
		if err := tx.QueryRow(consume, p.SpaceID, date, p.Ceiling).Scan(&count); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Rollback undoes the dates consumed so far in this
				// attempt; a retry after capacity frees starts clean.
				return SettlementDateFull, date, nil
			}
			return SettlementStale, "", fmt.Errorf("consume slot %s/%s: %w", p.SpaceID, date, err)
		}
	}

	receipt := sql.NullString{String: p.ReceiptNumber, Valid: p.ReceiptNumber != ""}
	if _, err := tx.Exec(
		`UPDATE payments SET status = $2, receipt_number = $3, payment_date = $4 WHERE id = $1`,
		p.PaymentID, db.PaymentCompleted, receipt, p.SettledAt,
	); err != nil {
		return SettlementStale, "", fmt.Errorf("complete payment %s: %w", p.PaymentID, err)
	}

	result, err := tx.Exec(
		`UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		p.ReservationID, db.ReservationPaid, p.UpdatedAt, db.ReservationCreated,
	)
	if err != nil {
		return SettlementStale, "", fmt.Errorf("mark reservation %s paid: %w", p.ReservationID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return SettlementStale, "", err
	}
	if affected == 0 {
		return SettlementStale, "", nil
	}

	if err := tx.Commit(); err != nil {
		return SettlementStale, "", fmt.Errorf("commit settlement: %w", err)
	}
	return SettlementApplied, "", nil
}
