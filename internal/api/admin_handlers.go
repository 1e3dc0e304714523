package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"parkeo/internal/service"
)

type AdminHandler struct {
	Admin        *service.AdminService
	Reservations *service.ReservationService
}

func NewAdminHandler(admin *service.AdminService, reservations *service.ReservationService) *AdminHandler {
	return &AdminHandler{Admin: admin, Reservations: reservations}
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	status := r.URL.Query().Get("status")

	list, err := h.Admin.ListReservations(date, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Admin.ListPayments()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *AdminHandler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp, err := h.Reservations.Complete(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
