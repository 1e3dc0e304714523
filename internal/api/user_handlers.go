package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"parkeo/internal/auth"
	"parkeo/internal/entities"
	apperr "parkeo/internal/errors"
	"parkeo/internal/service"
)

type UserReservationHandler struct {
	Service *service.ReservationService
}

func NewUserReservationHandler(svc *service.ReservationService) *UserReservationHandler {
	return &UserReservationHandler{Service: svc}
}

func (h *UserReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}

	err := h.Service.CheckAvailability(auth.UserID(r), req)
	if err == nil {
		writeJSON(w, http.StatusOK, entities.AvailabilityResponse{Available: true})
		return
	}
	if reason, ok := apperr.ReasonOf(err); ok {
		writeJSON(w, http.StatusOK, entities.AvailabilityResponse{
			Available: false,
			Reason:    string(reason),
			Message:   err.Error(),
		})
		return
	}
	writeError(w, err)
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req entities.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}

	resp, err := h.Service.Book(r.Context(), auth.UserID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *UserReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp, err := h.Service.Cancel(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserReservationHandler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.History(auth.UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *UserReservationHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.Service.ListSpaces()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

func (h *UserReservationHandler) SlotsBySpace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slots, err := h.Service.SlotsBySpace(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}
