package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkeo/internal/db"
)

const paymentColumns = `
	id, reservation_id, payment_method, amount, status, receipt_number,
	reference_number, gateway_session_id, payment_date`

type PaymentRepository interface {
	Create(p *db.Payment) error
	GetByReferenceNumber(ref string) (*db.Payment, error)
	ListByReservation(reservationID string) ([]db.Payment, error)
	List() ([]db.Payment, error)
	// SetGatewaySession records the checkout session the gateway opened for
	// this payment, once the session exists.
	SetGatewaySession(id, sessionID string) error
	// MarkCompleted settles the payment, capturing the gateway receipt
	// number and settlement timestamp.
	MarkCompleted(id, receiptNumber string, paidAt time.Time) error
	MarkFailed(id string, failedAt time.Time) error
	// FailAllForReservation cascades every payment attempt of a cancelled
	// reservation to failed.
	FailAllForReservation(reservationID string, failedAt time.Time) error
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(database *sql.DB) PaymentRepository {
	return &paymentRepository{db: database}
}

func (r *paymentRepository) Create(p *db.Payment) error {
	query := `
		INSERT INTO payments
		(id, reservation_id, payment_method, amount, status, receipt_number,
		 reference_number, gateway_session_id, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		p.ID,
		p.ReservationID,
		p.PaymentMethod,
		p.Amount,
		p.Status,
		p.ReceiptNumber,
		p.ReferenceNumber,
		p.GatewaySessionID,
		p.PaymentDate,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByReferenceNumber(ref string) (*db.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE reference_number = $1`
	p, err := scanPayment(r.db.QueryRow(query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment by reference %s: %w", ref, err)
	}
	return p, nil
}

func (r *paymentRepository) ListByReservation(reservationID string) ([]db.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments WHERE reservation_id = $1 ORDER BY payment_date DESC`
	return r.queryPayments(query, reservationID)
}

func (r *paymentRepository) List() ([]db.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments ORDER BY payment_date DESC`
	return r.queryPayments(query)
}

func (r *paymentRepository) SetGatewaySession(id, sessionID string) error {
	query := `UPDATE payments SET gateway_session_id = $2 WHERE id = $1`
	if _, err := r.db.Exec(query, id, sessionID); err != nil {
		return fmt.Errorf("set gateway session for payment %s: %w", id, err)
	}
	return nil
}

func (r *paymentRepository) MarkCompleted(id, receiptNumber string, paidAt time.Time) error {
	query := `
		UPDATE payments
		SET status = $2, receipt_number = $3, payment_date = $4
		WHERE id = $1`

	receipt := sql.NullString{String: receiptNumber, Valid: receiptNumber != ""}
	if _, err := r.db.Exec(query, id, db.PaymentCompleted, receipt, paidAt); err != nil {
		return fmt.Errorf("mark payment %s completed: %w", id, err)
	}
	return nil
}

func (r *paymentRepository) MarkFailed(id string, failedAt time.Time) error {
	query := `UPDATE payments SET status = $2, payment_date = $3 WHERE id = $1`
	if _, err := r.db.Exec(query, id, db.PaymentFailed, failedAt); err != nil {
		return fmt.Errorf("mark payment %s failed: %w", id, err)
	}
	return nil
}

func (r *paymentRepository) FailAllForReservation(reservationID string, failedAt time.Time) error {
	query := `UPDATE payments SET status = $2, payment_date = $3 WHERE reservation_id = $1`
	if _, err := r.db.Exec(query, reservationID, db.PaymentFailed, failedAt); err != nil {
		return fmt.Errorf("fail payments for reservation %s: %w", reservationID, err)
	}
	return nil
}

func (r *paymentRepository) queryPayments(query string, args ...interface{}) ([]db.Payment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []db.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*db.Payment, error) {
	var p db.Payment
	err := row.Scan(
		&p.ID, &p.ReservationID, &p.PaymentMethod, &p.Amount, &p.Status,
		&p.ReceiptNumber, &p.ReferenceNumber, &p.GatewaySessionID, &p.PaymentDate,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
