package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

// SessionHandler exposes booking flows over HTTP. Each session holds one flow.
type SessionHandler struct {
	orch     *booking.Orchestrator
	sessions *booking.Sessions
	logger   *slog.Logger
}

func NewSessionHandler(orch *booking.Orchestrator, sessions *booking.Sessions, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{orch: orch, sessions: sessions, logger: logger}
}

type sessionResponse struct {
	SessionID string          `json:"session_id"`
	Step      booking.Step    `json:"step"`
	State     booking.State   `json:"state"`
	Events    []booking.Event `json:"events,omitempty"`
}

type startSessionRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type actionRequest struct {
	SessionID string          `json:"session_id"`
	Action    json.RawMessage `json:"action"`
}

type submitRequest struct {
	SessionID string `json:"session_id"`
}

type submitResponse struct {
	SessionID   string            `json:"session_id"`
	Appointment model.Appointment `json:"appointment"`
	State       booking.State     `json:"state"`
}

// Sessions starts a flow on POST (optionally editing an appointment) and reads
// one on GET.
func (h *SessionHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id := strings.TrimSpace(r.URL.Query().Get("session_id"))
		state, err := h.sessions.Get(id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Step: state.Step(), State: state})
	case http.MethodPost:
		var req startSessionRequest
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}
		var state booking.State
		if id := strings.TrimSpace(req.AppointmentID); id != "" {
			var err error
			if state, err = h.orch.StartEdit(r.Context(), id); err != nil {
				writeError(w, h.logger, err)
				return
			}
		}
		id := h.sessions.Create(state)
		writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id, Step: state.Step(), State: state})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) Actions(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) {
		return
	}
	action, err := booking.DecodeAction(req.Action)
	if err != nil {
		http.Error(w, "invalid action: "+err.Error(), http.StatusBadRequest)
		return
	}
	var evts []booking.Event
	state, err := h.sessions.Update(req.SessionID, func(s booking.State) (booking.State, error) {
		next, e, err := h.orch.Apply(r.Context(), s, action)
		evts = e
		return next, err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: req.SessionID, Step: state.Step(), State: state, Events: evts})
}

// Submit books the session's flow. The session stays open, reset to idle, so the
// same client can book again.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) {
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var appt model.Appointment
	state, err := h.sessions.Update(req.SessionID, func(s booking.State) (booking.State, error) {
		next, a, err := h.orch.Submit(r.Context(), s, key)
		appt = a
		return next, err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("booking submitted", "session_id", req.SessionID, "appointment_id", appt.ID)
	writeJSON(w, http.StatusCreated, submitResponse{SessionID: req.SessionID, Appointment: appt, State: state})
}
