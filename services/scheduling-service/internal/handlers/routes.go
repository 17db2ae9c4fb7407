package handlers

import "net/http"

func Register(mux *http.ServeMux, q *QueryHandler, a *AppointmentHandler, s *SessionHandler) {
	mux.HandleFunc("/api/v1/centres", q.Centres)
	mux.HandleFunc("/api/v1/services", q.Services)
	mux.HandleFunc("/api/v1/staff", q.Staff)
	mux.HandleFunc("/api/v1/slots", q.Slots)

	mux.HandleFunc("/api/v1/appointments", a.Appointments)
	mux.HandleFunc("/api/v1/appointments/update", a.Update)
	mux.HandleFunc("/api/v1/appointments/cancel", a.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", a.Reschedule)
	mux.HandleFunc("/api/v1/appointments/complete", a.Complete)
	mux.HandleFunc("/api/v1/appointments/status", a.Status)

	mux.HandleFunc("/api/v1/booking/sessions", s.Sessions)
	mux.HandleFunc("/api/v1/booking/sessions/actions", s.Actions)
	mux.HandleFunc("/api/v1/booking/sessions/submit", s.Submit)
}
