package service

import (
	"parkeo/internal/db"
	"parkeo/internal/entities"
	"parkeo/internal/repository"
)

// AdminService builds the enriched operator listings.
type AdminService struct {
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	vehicles     repository.VehicleRepository
	spaces       repository.SpaceRepository
}

func NewAdminService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	vehicles repository.VehicleRepository,
	spaces repository.SpaceRepository,
) *AdminService {
	return &AdminService{
		reservations: reservations,
		payments:     payments,
		vehicles:     vehicles,
		spaces:       spaces,
	}
}

// ListReservations returns reservations enriched with vehicle, space, and
// payment projections, optionally filtered by start date and status.
func (s *AdminService) ListReservations(date, status string) (*entities.ReservationsList, error) {
	reservations, err := s.reservations.List(date, status)
	if err != nil {
		return nil, err
	}

	vehicleCache := map[string]*entities.VehicleView{}
	spaceCache := map[string]*entities.SpaceView{}

	views := make([]entities.ReservationView, 0, len(reservations))
	for i := range reservations {
		res := &reservations[i]
		view := entities.NewReservationView(res)
		view.Vehicle = s.vehicleView(vehicleCache, res.VehicleID)
		view.ParkingSpace = s.spaceView(spaceCache, res.ParkingSpaceID)

		payments, err := s.payments.ListByReservation(res.ID)
		if err != nil {
			return nil, err
		}
		for j := range payments {
			view.Payments = append(view.Payments, *entities.NewPaymentView(&payments[j]))
		}
		views = append(views, *view)
	}

	return &entities.ReservationsList{
		Total:        len(views),
		Reservations: views,
	}, nil
}

// ListPayments returns every payment with its reservation projection.
func (s *AdminService) ListPayments() ([]entities.PaymentWithReservation, error) {
	payments, err := s.payments.List()
	if err != nil {
		return nil, err
	}

	reservationCache := map[string]*entities.ReservationView{}

	rows := make([]entities.PaymentWithReservation, 0, len(payments))
	for i := range payments {
		p := &payments[i]
		row := entities.PaymentWithReservation{PaymentView: *entities.NewPaymentView(p)}

		view, ok := reservationCache[p.ReservationID]
		if !ok {
			var res *db.Reservation
			res, err = s.reservations.GetByID(p.ReservationID)
			if err == nil {
				view = entities.NewReservationView(res)
			}
			reservationCache[p.ReservationID] = view
		}
		row.Reservation = view
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *AdminService) vehicleView(cache map[string]*entities.VehicleView, id string) *entities.VehicleView {
	if view, ok := cache[id]; ok {
		return view
	}
	var view *entities.VehicleView
	if v, err := s.vehicles.GetByID(id); err == nil {
		view = entities.NewVehicleView(v)
	}
	cache[id] = view
	return view
}

func (s *AdminService) spaceView(cache map[string]*entities.SpaceView, id string) *entities.SpaceView {
	if view, ok := cache[id]; ok {
		return view
	}
	var view *entities.SpaceView
	if sp, err := s.spaces.GetByID(id); err == nil {
		view = entities.NewSpaceView(sp)
	}
	cache[id] = view
	return view
}
