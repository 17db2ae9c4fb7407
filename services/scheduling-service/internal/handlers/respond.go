package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/appointments"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type validationResponse struct {
	Error  string                   `json:"error"`
	Fields booking.ValidationErrors `json:"fields"`
}

// writeError maps domain errors to status codes. Unknown errors are logged and
// reported as 500 without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if fields, ok := booking.IsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "booking incomplete", Fields: fields})
		return
	}
	switch {
	case errors.Is(err, appointments.ErrNotFound), errors.Is(err, booking.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, appointments.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, appointments.ErrSlotTaken):
		http.Error(w, "time slot already booked", http.StatusConflict)
	case errors.Is(err, appointments.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, appointments.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
