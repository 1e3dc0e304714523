package gateway

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the normalized payment state reported by a gateway.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusAuthFailed Status = "auth_failed"
	StatusOther      Status = "other"
)

// CheckoutRequest opens a hosted checkout session.
type CheckoutRequest struct {
	Amount          int64 // centavos
	Currency        string
	ReferenceNumber string
	Description     string
	SuccessURL      string
	FailureURL      string
	CancelURL       string
}

// Checkout is an opened session the client pays out-of-band.
type Checkout struct {
	URL       string
	SessionID string
}

// Transaction is the gateway's authoritative answer for a reference number.
// Raw carries the unmodified gateway payload for display to the caller.
type Transaction struct {
	Status        Status          `json:"status"`
	RawStatus     string          `json:"raw_status"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// Gateway abstracts a hosted-checkout payment provider. GetStatus takes the
// session ID recorded at checkout time; providers that look up by reference
// number alone ignore it.
type Gateway interface {
	OpenCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	GetStatus(ctx context.Context, referenceNumber, sessionID string) (*Transaction, error)
}
