// Package events publishes appointment lifecycle changes.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

const (
	AppointmentBooked        = "booking.appointment.booked.v1"
	AppointmentUpdated       = "booking.appointment.updated.v1"
	AppointmentCancelled     = "booking.appointment.cancelled.v1"
	AppointmentRescheduled   = "booking.appointment.rescheduled.v1"
	AppointmentCompleted     = "booking.appointment.completed.v1"
	AppointmentStatusChanged = "booking.appointment.status_changed.v1"
)

type Event struct {
	ID          string            `json:"event_id"`
	Type        string            `json:"event_type"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Appointment model.Appointment `json:"appointment"`
}

func New(eventType string, appt model.Appointment) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OccurredAt:  time.Now().UTC(),
		Appointment: appt,
	}
}

func (e Event) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// LogPublisher writes events to the service log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.Info("appointment event",
		"event_id", evt.ID,
		"event_type", evt.Type,
		"appointment_id", evt.Appointment.ID,
		"status", evt.Appointment.Status,
	)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*Recorder)(nil)
)
