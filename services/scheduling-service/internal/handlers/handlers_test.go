package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/appointments"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/events"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/locks"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/storage"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cat := catalog.NewMemory()
	if err := cat.Load(catalog.Demo()); err != nil {
		t.Fatalf("load demo: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()
	appts := appointments.NewService(store, locks.NewMemoryLocker(time.Minute, 0), &events.Recorder{}, logger, appointments.Config{})
	sched := scheduling.NewService(cat, store, scheduling.Config{})
	orch := booking.NewOrchestrator(sched, appts)

	mux := http.NewServeMux()
	Register(mux,
		NewQueryHandler(sched, logger),
		NewAppointmentHandler(appts, cat, logger),
		NewSessionHandler(orch, booking.NewSessions(time.Minute), logger),
	)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw
}

func decodeBody[T any](t *testing.T, rw *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rw.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rw.Body.String(), err)
	}
	return v
}

func TestQueries(t *testing.T) {
	h := newServer(t)

	rw := do(t, h, http.MethodGet, "/api/v1/centres?country=GB", nil)
	if rw.Code != http.StatusOK || len(decodeBody[listResponse[model.Centre]](t, rw).Items) != 2 {
		t.Fatalf("centres: %d %s", rw.Code, rw.Body.String())
	}
	if rw := do(t, h, http.MethodGet, "/api/v1/centres", nil); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without country, got %d", rw.Code)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/services", nil)
	if got := decodeBody[listResponse[model.Service]](t, rw).Items; len(got) != 3 {
		t.Fatalf("expected 3 virtual services, got %d", len(got))
	}
	rw = do(t, h, http.MethodGet, "/api/v1/services?centre_id=centre-nowhere", nil)
	if got := decodeBody[listResponse[model.Service]](t, rw).Items; len(got) != 0 {
		t.Fatalf("expected no services at unknown centre, got %d", len(got))
	}

	rw = do(t, h, http.MethodGet, "/api/v1/staff?service_id=svc-physio&centre_id=centre-manchester", nil)
	if got := decodeBody[listResponse[model.StaffMember]](t, rw).Items; len(got) != 1 || got[0].ID != "staff-tom" {
		t.Fatalf("unexpected staff %+v", got)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/slots?staff_id=staff-amira&date=2026-10-16&service_id=svc-massage&centre_id=centre-london", nil)
	if got := decodeBody[listResponse[model.TimeSlot]](t, rw).Items; len(got) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(got))
	}
	if rw := do(t, h, http.MethodPost, "/api/v1/slots", nil); rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}

func draftBody() map[string]any {
	return map[string]any{
		"client_id":       "client-1",
		"client_name":     "Priya Patel",
		"practitioner_id": "staff-amira",
		"date":            "2026-10-16",
		"start_time":      "09:00",
		"service_id":      "svc-massage",
		"location_mode":   "in-person",
		"centre_id":       "centre-london",
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	h := newServer(t)

	rw := do(t, h, http.MethodPost, "/api/v1/appointments", draftBody(), "Idempotency-Key", "k-1")
	if rw.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rw.Code, rw.Body.String())
	}
	created := decodeBody[model.Appointment](t, rw)
	if created.EndTime != "10:00" || created.ServiceType != "Deep Tissue Massage" || created.Price != 85 {
		t.Fatalf("service snapshot not applied: %+v", created)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments", draftBody(), "Idempotency-Key", "k-1")
	if rw.Code != http.StatusCreated || decodeBody[model.Appointment](t, rw).ID != created.ID {
		t.Fatalf("idempotent retry: %d %s", rw.Code, rw.Body.String())
	}
	if rw := do(t, h, http.MethodPost, "/api/v1/appointments", draftBody()); rw.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken slot, got %d", rw.Code)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/appointments?date=2026-10-16", nil)
	if got := decodeBody[listResponse[model.Appointment]](t, rw).Items; len(got) != 1 {
		t.Fatalf("expected one appointment, got %d", len(got))
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/update", map[string]any{"appointment_id": "nope", "notes": "x"})
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rw.Code)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/status", map[string]any{"appointment_id": created.ID, "status": "confirmed"})
	if rw.Code != http.StatusOK || decodeBody[model.Appointment](t, rw).Status != model.StatusConfirmed {
		t.Fatalf("confirm: %d %s", rw.Code, rw.Body.String())
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/reschedule", map[string]any{"appointment_id": created.ID, "date": "2026-10-16", "start_time": "14:00"})
	if rw.Code != http.StatusOK || decodeBody[model.Appointment](t, rw).EndTime != "15:00" {
		t.Fatalf("reschedule: %d %s", rw.Code, rw.Body.String())
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/cancel", map[string]any{"appointment_id": created.ID, "reason": "travel"})
	cancelled := decodeBody[model.Appointment](t, rw)
	if rw.Code != http.StatusOK || cancelled.Status != model.StatusCancelled || !strings.Contains(cancelled.Notes, "travel") {
		t.Fatalf("cancel: %d %s", rw.Code, rw.Body.String())
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/complete", map[string]any{"appointment_id": created.ID})
	if rw.Code != http.StatusConflict {
		t.Fatalf("expected 409 completing a cancelled appointment, got %d", rw.Code)
	}
}

func TestAppointmentBadInput(t *testing.T) {
	h := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader("{"))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rw.Code)
	}

	body := draftBody()
	body["date"] = "tomorrow"
	if rw := do(t, h, http.MethodPost, "/api/v1/appointments", body); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid draft, got %d", rw.Code)
	}
	if rw := do(t, h, http.MethodPost, "/api/v1/appointments/cancel", map[string]any{}); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", rw.Code)
	}
}

func TestBookingSessionFlow(t *testing.T) {
	h := newServer(t)

	rw := do(t, h, http.MethodPost, "/api/v1/booking/sessions", nil)
	if rw.Code != http.StatusCreated {
		t.Fatalf("start session: %d %s", rw.Code, rw.Body.String())
	}
	session := decodeBody[sessionResponse](t, rw)
	if session.Step != booking.StepIdle {
		t.Fatalf("expected idle, got %s", session.Step)
	}

	act := func(action map[string]any) sessionResponse {
		t.Helper()
		rw := do(t, h, http.MethodPost, "/api/v1/booking/sessions/actions", map[string]any{
			"session_id": session.SessionID,
			"action":     action,
		})
		if rw.Code != http.StatusOK {
			t.Fatalf("action %v: %d %s", action, rw.Code, rw.Body.String())
		}
		return decodeBody[sessionResponse](t, rw)
	}

	act(map[string]any{"type": "set_client", "client_id": "client-2"})
	resp := act(map[string]any{"type": "set_location", "location": "in-person"})
	if len(resp.Events) == 0 || resp.Events[0].Kind != booking.AutoSelected || resp.State.CentreID != "centre-dublin" {
		t.Fatalf("expected dublin auto-selected, got %+v", resp)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/booking/sessions/submit", submitRequest{SessionID: session.SessionID})
	if rw.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for incomplete booking, got %d", rw.Code)
	}
	if fields := decodeBody[validationResponse](t, rw).Fields; fields["service_id"] == "" || fields["slot"] == "" {
		t.Fatalf("unexpected validation fields %v", fields)
	}

	act(map[string]any{"type": "set_service", "service_id": "svc-consult"})
	act(map[string]any{"type": "set_staff", "staff_id": "staff-siobhan"})
	act(map[string]any{"type": "set_date", "date": "2026-10-16"})
	resp = act(map[string]any{"type": "set_slot", "time": "13:30"})
	if resp.Step != booking.StepSubmittable {
		t.Fatalf("expected submittable, got %s (%+v)", resp.Step, resp.State)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/booking/sessions/submit", submitRequest{SessionID: session.SessionID})
	if rw.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rw.Code, rw.Body.String())
	}
	submitted := decodeBody[submitResponse](t, rw)
	if submitted.Appointment.EndTime != "14:00" || submitted.Appointment.CentreID != "centre-dublin" {
		t.Fatalf("unexpected appointment %+v", submitted.Appointment)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/booking/sessions?session_id="+session.SessionID, nil)
	if got := decodeBody[sessionResponse](t, rw); got.Step != booking.StepIdle {
		t.Fatalf("expected session reset to idle, got %s", got.Step)
	}

	if rw := do(t, h, http.MethodGet, "/api/v1/booking/sessions?session_id=missing", nil); rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rw.Code)
	}
	rw = do(t, h, http.MethodPost, "/api/v1/booking/sessions/actions", map[string]any{
		"session_id": session.SessionID,
		"action":     map[string]any{"type": "fly"},
	})
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rw.Code)
	}
}

func TestEditSession(t *testing.T) {
	h := newServer(t)
	rw := do(t, h, http.MethodPost, "/api/v1/appointments", draftBody())
	created := decodeBody[model.Appointment](t, rw)

	rw = do(t, h, http.MethodPost, "/api/v1/booking/sessions", startSessionRequest{AppointmentID: created.ID})
	if rw.Code != http.StatusCreated {
		t.Fatalf("start edit: %d %s", rw.Code, rw.Body.String())
	}
	session := decodeBody[sessionResponse](t, rw)
	if session.State.EditingID != created.ID || session.Step != booking.StepSubmittable {
		t.Fatalf("unexpected edit session %+v", session)
	}

	if rw := do(t, h, http.MethodPost, "/api/v1/booking/sessions", startSessionRequest{AppointmentID: "missing"}); rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 editing unknown appointment, got %d", rw.Code)
	}
}

func TestCreateFreeVisitAndUnbookableStaff(t *testing.T) {
	h := newServer(t)

	body := draftBody()
	body["price"] = 0
	rw := do(t, h, http.MethodPost, "/api/v1/appointments", body)
	if rw.Code != http.StatusCreated {
		t.Fatalf("create free visit: %d %s", rw.Code, rw.Body.String())
	}
	if got := decodeBody[model.Appointment](t, rw); got.Price != 0 || got.ServiceType != "Deep Tissue Massage" {
		t.Fatalf("explicit zero price not kept: %+v", got)
	}

	body = draftBody()
	body["practitioner_id"] = "staff-lee"
	body["start_time"] = "11:00"
	if rw := do(t, h, http.MethodPost, "/api/v1/appointments", body); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 booking staff on leave, got %d", rw.Code)
	}
}
