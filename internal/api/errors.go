package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/turnitos/turnitos-backend/internal/auth"
	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
	"github.com/turnitos/turnitos-backend/internal/lock"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the engine's error taxonomy to HTTP statuses:
// validation 400, auth 401, access gate 403, not-found 404, conflicts 409.
// Calendar integrity failures are provisioning bugs and stay 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, business.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, booking.ErrNotBookable):
		writeError(w, http.StatusForbidden, "not_bookable", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound),
		errors.Is(err, booking.ErrAppointmentNotFound),
		errors.Is(err, booking.ErrClosedDateNotFound),
		errors.Is(err, booking.ErrBusinessNotFound),
		errors.Is(err, business.ErrBusinessNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, business.ErrSlugTaken):
		writeError(w, http.StatusConflict, "slug_taken", err.Error())
	case errors.Is(err, business.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, lock.ErrNotAcquired):
		writeError(w, http.StatusConflict, "booking_in_progress", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
