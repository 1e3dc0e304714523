package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperr "parkeo/internal/errors"
	"parkeo/internal/repository"
)

// Reconcile
type ReconcileRequest struct {
	ReferenceNumber string `json:"reference_number"`
	Cancel          bool   `json:"cancel"`
}

// Admin auth
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the envelope for every rejection: a stable reason code
// plus a human-readable message.
type ErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var app *apperr.AppError
	if errors.As(err, &app) {
		writeJSON(w, app.HTTPStatus(), ErrorResponse{
			Reason:  string(app.Reason),
			Message: app.Message,
		})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Reason:  string(apperr.ReasonNotFound),
			Message: "not found",
		})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Reason:  "internal_error",
		Message: "internal server error",
	})
}
