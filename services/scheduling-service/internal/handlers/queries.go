package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/scheduling"
)

// QueryHandler serves the candidate lookups and slot availability.
type QueryHandler struct {
	sched  *scheduling.Service
	logger *slog.Logger
}

func NewQueryHandler(sched *scheduling.Service, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{sched: sched, logger: logger}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func items[T any](in []T) listResponse[T] {
	if in == nil {
		in = []T{}
	}
	return listResponse[T]{Items: in}
}

func (h *QueryHandler) Centres(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		http.Error(w, "country required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, items(h.sched.ResolveCentreCandidates(r.Context(), country)))
}

func (h *QueryHandler) Services(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	centre, ok := h.centre(r.URL.Query().Get("centre_id"))
	if !ok {
		writeJSON(w, http.StatusOK, items[model.Service](nil))
		return
	}
	writeJSON(w, http.StatusOK, items(h.sched.ResolveServiceCandidates(r.Context(), centre)))
}

func (h *QueryHandler) Staff(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	mode := model.LocationMode(strings.TrimSpace(q.Get("location")))
	if mode == "" {
		mode = model.LocationInPerson
		if strings.TrimSpace(q.Get("centre_id")) == "" {
			mode = model.LocationVirtual
		}
	}
	if !mode.Valid() {
		http.Error(w, "location must be in-person or virtual", http.StatusBadRequest)
		return
	}
	svc, found := h.sched.Catalog().GetServiceByID(strings.TrimSpace(q.Get("service_id")))
	centre, ok := h.centre(q.Get("centre_id"))
	if !found || !ok {
		writeJSON(w, http.StatusOK, items[model.StaffMember](nil))
		return
	}
	writeJSON(w, http.StatusOK, items(h.sched.ResolveStaffCandidates(r.Context(), &svc, centre, mode)))
}

func (h *QueryHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	date := strings.TrimSpace(q.Get("date"))
	if staffID == "" || date == "" {
		http.Error(w, "staff_id and date required", http.StatusBadRequest)
		return
	}
	slots, err := h.sched.GetAvailableSlots(r.Context(), staffID, date,
		strings.TrimSpace(q.Get("service_id")), strings.TrimSpace(q.Get("centre_id")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items(slots))
}

// centre resolves an optional centre id. An empty id is valid and means no
// centre; an unknown one is not.
func (h *QueryHandler) centre(id string) (*model.Centre, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, true
	}
	c, ok := h.sched.Catalog().GetCentreByID(id)
	if !ok || !c.IsActive {
		return nil, false
	}
	return &c, true
}
