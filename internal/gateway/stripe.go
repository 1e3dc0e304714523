package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeGateway adapts Stripe hosted checkout to the Gateway interface.
// The reference number travels as the session's client reference ID; status
// lookups use the session ID recorded on the payment at checkout time.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) OpenCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ReferenceNumber),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &Checkout{URL: sess.URL, SessionID: sess.ID}, nil
}

func (g *StripeGateway) GetStatus(ctx context.Context, referenceNumber, sessionID string) (*Transaction, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	receipt := ""
	if sess.PaymentIntent != nil {
		receipt = sess.PaymentIntent.ID
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"id":                  sess.ID,
		"client_reference_id": sess.ClientReferenceID,
		"status":              sess.Status,
		"payment_status":      sess.PaymentStatus,
		"amount_total":        sess.AmountTotal,
		"currency":            sess.Currency,
	})

	return &Transaction{
		Status:        mapStripeSession(string(sess.Status), string(sess.PaymentStatus)),
		RawStatus:     string(sess.PaymentStatus),
		ReceiptNumber: receipt,
		UpdatedAt:     time.Now().UTC(),
		Raw:           raw,
	}, nil
}

func mapStripeSession(sessionStatus, paymentStatus string) Status {
	switch paymentStatus {
	case "paid", "no_payment_required":
		return StatusSuccess
	case "unpaid":
		if sessionStatus == "expired" {
			return StatusFailed
		}
		return StatusPending
	default:
		return StatusOther
	}
}
