package api

import (
	"encoding/json"
	"net/http"

	apperr "parkeo/internal/errors"
	"parkeo/internal/service"
)

type PaymentHandler struct {
	Service *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

// Reconcile asks the gateway for the authoritative status of a reference
// number, applies the resulting lifecycle transition, and echoes the
// gateway payload. Clients poll this after returning from checkout.
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}

	tx, err := h.Service.Reconcile(r.Context(), req.ReferenceNumber, req.Cancel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
