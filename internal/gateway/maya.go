package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MayaClient talks to the Maya (PayMaya) checkout API. Checkouts are opened
// with the public key, payment status is read with the secret key via the
// payment-rrns lookup, keyed by the request reference number.
type MayaClient struct {
	BaseURL   string
	PublicKey string
	SecretKey string
	HTTP      *http.Client
}

func NewMayaClient(baseURL, publicKey, secretKey string) *MayaClient {
	return &MayaClient{
		BaseURL:   baseURL,
		PublicKey: publicKey,
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type mayaAmount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type mayaRedirects struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Cancel  string `json:"cancel"`
}

type mayaCheckoutRequest struct {
	TotalAmount            mayaAmount    `json:"totalAmount"`
	RequestReferenceNumber string        `json:"requestReferenceNumber"`
	RedirectURL            mayaRedirects `json:"redirectUrl"`
}

type mayaCheckoutResponse struct {
	CheckoutID  string `json:"checkoutId"`
	RedirectURL string `json:"redirectUrl"`
}

type mayaTransaction struct {
	Status    string `json:"status"`
	UpdatedAt string `json:"updatedAt"`
	Receipt   struct {
		ReceiptNo string `json:"receiptNo"`
	} `json:"receipt"`
	ReceiptNumber          string `json:"receiptNumber"`
	RequestReferenceNumber string `json:"requestReferenceNumber"`
}

func (c *MayaClient) OpenCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	payload := mayaCheckoutRequest{
		TotalAmount: mayaAmount{
			Value:    float64(req.Amount) / 100,
			Currency: req.Currency,
		},
		RequestReferenceNumber: req.ReferenceNumber,
		RedirectURL: mayaRedirects{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Cancel:  req.CancelURL,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, c.PublicKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("maya checkout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("maya checkout returned status %d", resp.StatusCode)
	}

	var out mayaCheckoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("maya checkout decode: %w", err)
	}
	return &Checkout{URL: out.RedirectURL, SessionID: out.CheckoutID}, nil
}

// GetStatus looks up the payment by reference number. The session ID is
// unused: Maya keys the lookup on the reference number alone.
func (c *MayaClient) GetStatus(ctx context.Context, referenceNumber, _ string) (*Transaction, error) {
	url := fmt.Sprintf("%s/payments/v1/payment-rrns/%s", c.BaseURL, referenceNumber)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, c.SecretKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("maya status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("maya status returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Maya answers with an array of transactions for the reference number;
	// the first element is the most recent attempt.
	var list []mayaTransaction
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("maya status decode: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no transaction for reference number %s", referenceNumber)
	}
	tx := list[0]

	receipt := tx.Receipt.ReceiptNo
	if receipt == "" {
		receipt = tx.ReceiptNumber
	}

	var updatedAt time.Time
	if tx.UpdatedAt != "" {
		if parsed, perr := time.Parse(time.RFC3339Nano, tx.UpdatedAt); perr == nil {
			updatedAt = parsed
		}
	}

	var raw json.RawMessage
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err == nil && len(elems) > 0 {
		raw = elems[0]
	}

	return &Transaction{
		Status:        mapMayaStatus(tx.Status),
		RawStatus:     tx.Status,
		ReceiptNumber: receipt,
		UpdatedAt:     updatedAt,
		Raw:           raw,
	}, nil
}

func (c *MayaClient) setHeaders(req *http.Request, key string) {
	auth := base64.StdEncoding.EncodeToString([]byte(key + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func mapMayaStatus(status string) Status {
	switch status {
	case "PAYMENT_SUCCESS":
		return StatusSuccess
	case "PAYMENT_FAILED", "PAYMENT_EXPIRED", "VOIDED", "REFUNDED":
		return StatusFailed
	case "AUTH_FAILED":
		return StatusAuthFailed
	case "PENDING_TOKEN", "PENDING_PAYMENT", "FOR_AUTHENTICATION", "AUTHORIZING", "PAYMENT_PROCESSING":
		return StatusPending
	default:
		return StatusOther
	}
}
