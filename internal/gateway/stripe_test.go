package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapStripeSession(t *testing.T) {
	cases := []struct {
		sessionStatus string
		paymentStatus string
		want          Status
	}{
		{"complete", "paid", StatusSuccess},
		{"complete", "no_payment_required", StatusSuccess},
		{"open", "unpaid", StatusPending},
		{"expired", "unpaid", StatusFailed},
		{"open", "something_else", StatusOther},
	}
	for _, tc := range cases {
		got := mapStripeSession(tc.sessionStatus, tc.paymentStatus)
		assert.Equal(t, tc.want, got, "%s/%s", tc.sessionStatus, tc.paymentStatus)
	}
}
