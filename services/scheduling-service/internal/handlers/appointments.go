package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/appointments"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

type AppointmentHandler struct {
	appts   *appointments.Service
	catalog catalog.Reader
	logger  *slog.Logger
}

func NewAppointmentHandler(appts *appointments.Service, c catalog.Reader, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{appts: appts, catalog: c, logger: logger}
}

type updateRequest struct {
	AppointmentID string `json:"appointment_id"`
	appointments.Patch
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
}

type statusRequest struct {
	AppointmentID string                  `json:"appointment_id"`
	Status        model.AppointmentStatus `json:"status"`
}

// Appointments serves GET (one, by date, or all) and POST (create).
func (h *AppointmentHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := strings.TrimSpace(q.Get("appointment_id")); id != "" {
		appt, err := h.appts.Get(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
		return
	}

	var (
		list []model.Appointment
		err  error
	)
	if date := strings.TrimSpace(q.Get("date")); date != "" {
		list, err = h.appts.ListByDate(r.Context(), date)
	} else {
		list, err = h.appts.List(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items(list))
}

// createRequest shadows Draft.Price so an explicit price of 0 (a free visit)
// can be told apart from an omitted one.
type createRequest struct {
	appointments.Draft
	Price *float64 `json:"price"`
}

// create fills the service snapshot from the catalog when the draft names a
// service but leaves its name, duration or price out. Practitioners the catalog
// marks unbookable are rejected.
func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	d := req.Draft
	if req.Price != nil {
		d.Price = *req.Price
	}
	if staff, ok := h.catalog.GetStaffByID(strings.TrimSpace(d.PractitionerID)); ok && !staff.Bookable() {
		http.Error(w, "practitioner is not available for booking", http.StatusBadRequest)
		return
	}
	if svc, ok := h.catalog.GetServiceByID(strings.TrimSpace(d.ServiceID)); ok {
		if d.ServiceType == "" {
			d.ServiceType = svc.Name
		}
		if d.Duration == 0 {
			d.Duration = svc.DurationMinutes
		}
		if req.Price == nil {
			d.Price = svc.Price
		}
	}
	appt, err := h.appts.Create(r.Context(), d, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) || !requireID(w, req.AppointmentID) {
		return
	}
	h.respond(w)(h.appts.Update(r.Context(), req.AppointmentID, req.Patch))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) || !requireID(w, req.AppointmentID) {
		return
	}
	h.respond(w)(h.appts.Cancel(r.Context(), req.AppointmentID, req.Reason))
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) || !requireID(w, req.AppointmentID) {
		return
	}
	if req.Date == "" || req.StartTime == "" {
		http.Error(w, "date and start_time required", http.StatusBadRequest)
		return
	}
	h.respond(w)(h.appts.Reschedule(r.Context(), req.AppointmentID, req.Date, req.StartTime))
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) || !requireID(w, req.AppointmentID) {
		return
	}
	h.respond(w)(h.appts.Complete(r.Context(), req.AppointmentID))
}

func (h *AppointmentHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !allow(w, r, http.MethodPost) || !decode(w, r, &req) || !requireID(w, req.AppointmentID) {
		return
	}
	h.respond(w)(h.appts.Transition(r.Context(), req.AppointmentID, req.Status))
}

func (h *AppointmentHandler) respond(w http.ResponseWriter) func(model.Appointment, error) {
	return func(appt model.Appointment, err error) {
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func requireID(w http.ResponseWriter, id string) bool {
	if strings.TrimSpace(id) == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return false
	}
	return true
}
