package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"parkeo/internal/db"
	"parkeo/internal/gateway"
	"parkeo/internal/repository"
)

// In-memory fakes of the repository interfaces. The slot fake guards its
// counter map with a mutex so the capacity-race tests exercise the same
// atomic consume semantics the SQL ledger provides.

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

type fakeReservationRepo struct {
	mu    sync.Mutex
	items map[string]*db.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{items: map[string]*db.Reservation{}}
}

func (r *fakeReservationRepo) Create(res *db.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *res
	r.items[res.ID] = &cp
	return nil
}

func (r *fakeReservationRepo) GetByID(id string) (*db.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeReservationRepo) ListByUserVehicleSpace(userID, vehicleID, spaceID string) ([]db.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Reservation
	for _, res := range r.items {
		if res.UserID != userID || res.VehicleID != vehicleID || res.ParkingSpaceID != spaceID {
			continue
		}
		if res.Status != db.ReservationCreated && res.Status != db.ReservationPaid {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *fakeReservationRepo) ListByUser(userID string) ([]db.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Reservation
	for _, res := range r.items {
		if res.UserID == userID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) List(date, status string) ([]db.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Reservation
	for _, res := range r.items {
		if status != "" && res.Status != status {
			continue
		}
		if date != "" && res.StartTime.UTC().Format("2006-01-02") != date {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *fakeReservationRepo) UpdateStatus(id, status string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.Status = status
	res.UpdatedAt = updatedAt
	return nil
}

type fakePaymentRepo struct {
	mu    sync.Mutex
	items map[string]*db.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{items: map[string]*db.Payment{}}
}

func (r *fakePaymentRepo) Create(p *db.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByReferenceNumber(ref string) (*db.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.ReferenceNumber == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) ListByReservation(reservationID string) ([]db.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Payment
	for _, p := range r.items {
		if p.ReservationID == reservationID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) List() ([]db.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.Payment
	for _, p := range r.items {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePaymentRepo) SetGatewaySession(id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.GatewaySessionID = sessionID
	return nil
}

func (r *fakePaymentRepo) MarkCompleted(id, receiptNumber string, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = db.PaymentCompleted
	p.ReceiptNumber.String = receiptNumber
	p.ReceiptNumber.Valid = receiptNumber != ""
	p.PaymentDate = paidAt
	return nil
}

func (r *fakePaymentRepo) MarkFailed(id string, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = db.PaymentFailed
	p.PaymentDate = failedAt
	return nil
}

func (r *fakePaymentRepo) FailAllForReservation(reservationID string, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.ReservationID == reservationID {
			p.Status = db.PaymentFailed
			p.PaymentDate = failedAt
		}
	}
	return nil
}

type fakeSlotRepo struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{counts: map[string]int{}}
}

func slotKey(spaceID, date string) string {
	return spaceID + "|" + date
}

func (r *fakeSlotRepo) TryConsume(spaceID, date string, ceiling int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey(spaceID, date)
	if ceiling <= 0 || r.counts[key] >= ceiling {
		return repository.ErrDateFull
	}
	r.counts[key]++
	return nil
}

func (r *fakeSlotRepo) Release(spaceID, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey(spaceID, date)
	if r.counts[key] > 0 {
		r.counts[key]--
	}
	return nil
}

func (r *fakeSlotRepo) Count(spaceID, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[slotKey(spaceID, date)], nil
}

func (r *fakeSlotRepo) ListBySpace(spaceID string) ([]db.ReservedSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.ReservedSlot
	prefix := spaceID + "|"
	for key, count := range r.counts {
		if strings.HasPrefix(key, prefix) {
			out = append(out, db.ReservedSlot{
				ParkingSpaceID: spaceID,
				Date:           strings.TrimPrefix(key, prefix),
				ReservedCount:  count,
			})
		}
	}
	return out, nil
}

type fakeSpaceRepo struct {
	mu    sync.Mutex
	items map[string]*db.ParkingSpace
}

func newFakeSpaceRepo() *fakeSpaceRepo {
	return &fakeSpaceRepo{items: map[string]*db.ParkingSpace{}}
}

func (r *fakeSpaceRepo) GetByID(id string) (*db.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSpaceRepo) List() ([]db.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.ParkingSpace
	for _, s := range r.items {
		if !s.IsDeleted {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeVehicleRepo struct {
	items map[string]*db.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{items: map[string]*db.Vehicle{}}
}

func (r *fakeVehicleRepo) GetByID(id string) (*db.Vehicle, error) {
	v, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// fakeSettlementRepo mirrors the transactional settlement over the fake
// stores: one mutex plays the payment row lock, and a full date rolls back
// the attempt's consumes.
type fakeSettlementRepo struct {
	mu           sync.Mutex
	payments     *fakePaymentRepo
	reservations *fakeReservationRepo
	slots        *fakeSlotRepo
}

func (r *fakeSettlementRepo) SettlePayment(p repository.SettlementParams) (repository.SettlementResult, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments.mu.Lock()
	payment, ok := r.payments.items[p.PaymentID]
	status := ""
	if ok {
		status = payment.Status
	}
	r.payments.mu.Unlock()
	if !ok {
		return repository.SettlementStale, "", repository.ErrNotFound
	}
	if status != db.PaymentPending {
		return repository.SettlementStale, "", nil
	}

	var consumed []string
	for _, date := range p.Dates {
		if err := r.slots.TryConsume(p.SpaceID, date, p.Ceiling); err != nil {
			for _, d := range consumed {
				_ = r.slots.Release(p.SpaceID, d)
			}
			return repository.SettlementDateFull, date, nil
		}
		consumed = append(consumed, date)
	}

	r.reservations.mu.Lock()
	res, ok := r.reservations.items[p.ReservationID]
	if !ok || res.Status != db.ReservationCreated {
		r.reservations.mu.Unlock()
		for _, d := range consumed {
			_ = r.slots.Release(p.SpaceID, d)
		}
		return repository.SettlementStale, "", nil
	}
	res.Status = db.ReservationPaid
	res.UpdatedAt = p.UpdatedAt
	r.reservations.mu.Unlock()

	if err := r.payments.MarkCompleted(p.PaymentID, p.ReceiptNumber, p.SettledAt); err != nil {
		return repository.SettlementStale, "", err
	}
	return repository.SettlementApplied, "", nil
}

type fakeGateway struct {
	mu        sync.Mutex
	checkout  *gateway.Checkout
	openErr   error
	tx        *gateway.Transaction
	statusErr error
	onOpen    func()
	onStatus  func()
}

func (g *fakeGateway) OpenCheckout(_ context.Context, _ gateway.CheckoutRequest) (*gateway.Checkout, error) {
	g.mu.Lock()
	hook := g.onOpen
	openErr := g.openErr
	checkout := g.checkout
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if openErr != nil {
		return nil, openErr
	}
	if checkout != nil {
		return checkout, nil
	}
	return &gateway.Checkout{URL: "https://checkout.test/session", SessionID: "sess-1"}, nil
}

func (g *fakeGateway) GetStatus(_ context.Context, _, _ string) (*gateway.Transaction, error) {
	g.mu.Lock()
	hook := g.onStatus
	statusErr := g.statusErr
	var cp *gateway.Transaction
	if g.tx != nil {
		c := *g.tx
		cp = &c
	}
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if statusErr != nil {
		return nil, statusErr
	}
	return cp, nil
}

// env bundles the fakes with services wired the way main does it.
type env struct {
	reservations *fakeReservationRepo
	payments     *fakePaymentRepo
	slots        *fakeSlotRepo
	spaces       *fakeSpaceRepo
	vehicles     *fakeVehicleRepo
	settlements  *fakeSettlementRepo
	gw           *fakeGateway
	clock        fakeClock

	reservationSvc *ReservationService
	paymentSvc     *PaymentService
}

func newEnv(availableSpaces int) *env {
	e := &env{
		reservations: newFakeReservationRepo(),
		payments:     newFakePaymentRepo(),
		slots:        newFakeSlotRepo(),
		spaces:       newFakeSpaceRepo(),
		vehicles:     newFakeVehicleRepo(),
		gw:           &fakeGateway{},
		clock:        fakeClock{now: time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)},
	}
	e.settlements = &fakeSettlementRepo{
		payments:     e.payments,
		reservations: e.reservations,
		slots:        e.slots,
	}

	e.spaces.items["space-1"] = &db.ParkingSpace{
		ID:                 "space-1",
		EstablishmentName:  "Harbor Square Parking",
		TotalSpaces:        availableSpaces,
		AvailableSpaces:    availableSpaces,
		AvailabilityStatus: db.SpaceOpen,
	}
	e.vehicles.items["veh-1"] = &db.Vehicle{ID: "veh-1", UserID: "user-1", PlateNumber: "ABC123"}
	e.vehicles.items["veh-2"] = &db.Vehicle{ID: "veh-2", UserID: "user-2", PlateNumber: "XYZ789"}

	gateways := map[string]gateway.Gateway{"maya": e.gw}

	e.reservationSvc = NewReservationService(
		e.reservations, e.payments, e.slots, e.spaces, e.vehicles,
		gateways, nil, e.clock, "https://app.test",
	)
	e.paymentSvc = NewPaymentService(
		e.payments, e.reservations, e.spaces, e.settlements, gateways, nil, e.clock,
	)
	return e
}
