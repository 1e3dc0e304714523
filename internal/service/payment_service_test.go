package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkeo/internal/db"
	apperr "parkeo/internal/errors"
	"parkeo/internal/gateway"
)

func successTx() *gateway.Transaction {
	return &gateway.Transaction{
		Status:        gateway.StatusSuccess,
		RawStatus:     "PAYMENT_SUCCESS",
		ReceiptNumber: "a6be00752969",
		UpdatedAt:     time.Date(2025, 1, 5, 12, 30, 0, 0, time.UTC),
	}
}

func TestReconcileSuccessSettlesReservation(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.tx = successTx()

	tx, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusSuccess, tx.Status)

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationPaid, res.Status)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentCompleted, payment.Status)
	assert.Equal(t, "a6be00752969", payment.ReceiptNumber.String)
	assert.Equal(t, time.Date(2025, 1, 5, 12, 30, 0, 0, time.UTC), payment.PaymentDate)

	count, err := e.slots.Count("space-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReconcileSuccessIsIdempotent(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.tx = successTx()

	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)
	_, err = e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)

	// The second call takes no second ledger unit.
	count, err := e.slots.Count("space-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReconcileMultiDayConsumesEveryDate(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 12, 0, 30, 0, 0, time.UTC))
	e.gw.tx = successTx()

	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)

	for _, date := range []string{"2025-01-10", "2025-01-11", "2025-01-12"} {
		count, err := e.slots.Count("space-1", date)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "date %s", date)
	}
}

func TestReconcileFullDateAbortsBeforeStatusChange(t *testing.T) {
	e := newEnv(1)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 11, 6, 0, 0, 0, time.UTC))
	// The second covered date fills up between booking and settlement.
	require.NoError(t, e.slots.TryConsume("space-1", "2025-01-11", 1))
	e.gw.tx = successTx()

	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	assert.Equal(t, apperr.ReasonConflict, reasonOf(t, err))
	assert.Contains(t, err.Error(), "2025-01-11")

	// Nothing moved: the reservation stays CREATED, the payment PENDING,
	// and the attempt's consume of the first date was rolled back. A retry
	// after capacity frees starts from scratch.
	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCreated, res.Status)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentPending, payment.Status)

	count, err := e.slots.Count("space-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = e.slots.Count("space-1", "2025-01-11")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReconcileRetriedConfirmationConsumesOnce(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.tx = successTx()

	// Hold both reconciles inside the gateway lookup, after each has read
	// the payment as pending, then release them together.
	var inside sync.WaitGroup
	inside.Add(2)
	e.gw.onStatus = func() {
		inside.Done()
		inside.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// One paid reservation must consume exactly one unit.
	count, err := e.slots.Count("space-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationPaid, res.Status)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentCompleted, payment.Status)
}

func TestReconcileCapacityAdmitsExactlyOne(t *testing.T) {
	e := newEnv(1)
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	first := e.book(t, "user-1", "veh-1", start, end)
	second := e.book(t, "user-2", "veh-2", start, end)
	e.gw.tx = successTx()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ReservationID, second.ReservationID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.paymentSvc.Reconcile(context.Background(), id, false)
		}(i, id)
	}
	wg.Wait()

	var settled, rejected int
	for _, err := range errs {
		if err == nil {
			settled++
		} else if reason, ok := apperr.ReasonOf(err); ok && reason == apperr.ReasonConflict {
			rejected++
		}
	}
	assert.Equal(t, 1, settled, "exactly one payment settles")
	assert.Equal(t, 1, rejected, "the other hits the full date")

	count, err := e.slots.Count("space-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var paid, created int
	for _, id := range []string{first.ReservationID, second.ReservationID} {
		res, err := e.reservations.GetByID(id)
		require.NoError(t, err)
		switch res.Status {
		case db.ReservationPaid:
			paid++
		case db.ReservationCreated:
			created++
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, 1, created)
}

func TestReconcileFailureCancelsReservation(t *testing.T) {
	for _, status := range []gateway.Status{gateway.StatusFailed, gateway.StatusAuthFailed} {
		t.Run(string(status), func(t *testing.T) {
			e := newEnv(5)
			resp := e.book(t, "user-1", "veh-1",
				time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
				time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
			failedAt := time.Date(2025, 1, 5, 12, 45, 0, 0, time.UTC)
			e.gw.tx = &gateway.Transaction{Status: status, RawStatus: "PAYMENT_FAILED", UpdatedAt: failedAt}

			tx, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
			require.NoError(t, err)
			assert.Equal(t, status, tx.Status)

			res, err := e.reservations.GetByID(resp.ReservationID)
			require.NoError(t, err)
			assert.Equal(t, db.ReservationCancelled, res.Status)

			// The failed payment carries the gateway's timestamp.
			payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
			require.NoError(t, err)
			assert.Equal(t, db.PaymentFailed, payment.Status)
			assert.Equal(t, failedAt, payment.PaymentDate)

			count, err := e.slots.Count("space-1", "2025-01-10")
			require.NoError(t, err)
			assert.Equal(t, 0, count)
		})
	}
}

func TestReconcileFailureAfterSettlementIsIgnored(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.tx = successTx()
	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)

	// A contradictory failed report after settlement must not flip the
	// completed payment or cancel the paid reservation.
	e.gw.tx = &gateway.Transaction{Status: gateway.StatusFailed, RawStatus: "PAYMENT_FAILED"}
	_, err = e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentCompleted, payment.Status)
	assert.Equal(t, "a6be00752969", payment.ReceiptNumber.String)

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationPaid, res.Status)

	// Same for a late cancel request: the settled payment stays settled and
	// the reservation keeps its ledger units.
	_, err = e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, true)
	require.NoError(t, err)
	payment, err = e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentCompleted, payment.Status)
	res, err = e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationPaid, res.Status)
}

func TestReconcilePendingLeavesEverythingUntouched(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.tx = &gateway.Transaction{Status: gateway.StatusPending, RawStatus: "PENDING_TOKEN"}

	tx, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusPending, tx.Status)

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCreated, res.Status)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentPending, payment.Status)
}

func TestReconcileCancelRequested(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.tx = &gateway.Transaction{Status: gateway.StatusPending, RawStatus: "PENDING_TOKEN"}

	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, true)
	require.NoError(t, err)

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCancelled, res.Status)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentFailed, payment.Status)

	// Repeating the cancel is harmless.
	_, err = e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, true)
	require.NoError(t, err)
}

func TestReconcileSuccessOnCancelledReservationDoesNothing(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	_, err := e.reservationSvc.Cancel(resp.ReservationID)
	require.NoError(t, err)
	e.gw.tx = successTx()

	// A late success report on an already cancelled reservation must not
	// consume capacity or resurrect the reservation.
	_, err = e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCancelled, res.Status)

	count, err := e.slots.Count("space-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReconcileUnknownReference(t *testing.T) {
	e := newEnv(5)
	_, err := e.paymentSvc.Reconcile(context.Background(), "no-such-ref", false)
	assert.Equal(t, apperr.ReasonNotFound, reasonOf(t, err))

	_, err = e.paymentSvc.Reconcile(context.Background(), "", false)
	assert.Equal(t, apperr.ReasonValidation, reasonOf(t, err))
}

func TestReconcileGatewayLookupFailureMutatesNothing(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))
	e.gw.statusErr = assert.AnError

	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	assert.Equal(t, apperr.ReasonExternalUnavailable, reasonOf(t, err))

	res, err := e.reservations.GetByID(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCreated, res.Status)

	payment, err := e.payments.GetByReferenceNumber(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentPending, payment.Status)
}

func TestCompleteReleasesEveryConsumedDate(t *testing.T) {
	e := newEnv(5)
	resp := e.book(t, "user-1", "veh-1",
		time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 12, 0, 30, 0, 0, time.UTC))
	e.gw.tx = successTx()

	_, err := e.paymentSvc.Reconcile(context.Background(), resp.ReservationID, false)
	require.NoError(t, err)

	status, err := e.reservationSvc.Complete(resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCompleted, status.Status)

	for _, date := range []string{"2025-01-10", "2025-01-11", "2025-01-12"} {
		count, err := e.slots.Count("space-1", date)
		require.NoError(t, err)
		assert.Equal(t, 0, count, "date %s", date)
	}
}
