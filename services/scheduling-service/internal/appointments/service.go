// Package appointments owns every write to the appointment collection. Callers
// never edit status or derived times directly; they go through Service.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/events"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/locks"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/storage"
	wh "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotTaken         = errors.New("slot already booked")
	ErrInvalid           = errors.New("invalid appointment")
	ErrBusy              = errors.New("appointment is being modified")
)

// FallbackDuration is used when an appointment carries no duration of its own.
const FallbackDuration = 60

type Config struct {
	ConflictMode  availability.ConflictMode
	ConflictScope availability.ConflictScope
}

type Service struct {
	store     storage.Store
	locker    locks.Locker
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
	newID     func() string
}

func NewService(store storage.Store, locker locks.Locker, publisher events.Publisher, logger *slog.Logger, cfg Config) *Service {
	if cfg.ConflictMode == "" {
		cfg.ConflictMode = availability.ConflictExact
	}
	if cfg.ConflictScope == "" {
		cfg.ConflictScope = availability.ScopeStaff
	}
	return &Service{
		store:     store,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Draft is the caller-supplied part of a new appointment. EndTime is derived from
// StartTime and Duration.
type Draft struct {
	ClientID       string             `json:"client_id"`
	ClientName     string             `json:"client_name"`
	ClientEmail    string             `json:"client_email"`
	ClientPhone    string             `json:"client_phone"`
	PractitionerID string             `json:"practitioner_id"`
	Date           string             `json:"date"`
	StartTime      string             `json:"start_time"`
	Duration       int                `json:"duration"`
	ServiceID      string             `json:"service_id"`
	ServiceType    string             `json:"service_type"`
	LocationMode   model.LocationMode `json:"location_mode"`
	CentreID       string             `json:"centre_id"`
	Price          float64            `json:"price"`
	Notes          string             `json:"notes"`
}

// EndTime adds minutes to an HH:MM start. The result must stay on the same day.
func EndTime(start string, minutes int) (string, error) {
	s, err := wh.ParseClock(start)
	if err != nil {
		return "", fmt.Errorf("%w: start time: %v", ErrInvalid, err)
	}
	if minutes <= 0 {
		return "", fmt.Errorf("%w: duration must be positive", ErrInvalid)
	}
	end := s.Add(minutes)
	if end > wh.EndOfDay {
		return "", fmt.Errorf("%w: appointment would run past midnight", ErrInvalid)
	}
	return end.String(), nil
}

func (d Draft) validate() error {
	var problems []string
	if strings.TrimSpace(d.ClientName) == "" {
		problems = append(problems, "client_name is required")
	}
	if strings.TrimSpace(d.PractitionerID) == "" {
		problems = append(problems, "practitioner_id is required")
	}
	if _, err := wh.ParseDate(d.Date); err != nil {
		problems = append(problems, "date must be YYYY-MM-DD")
	}
	if !d.LocationMode.Valid() {
		problems = append(problems, "location_mode must be in-person or virtual")
	}
	if d.LocationMode == model.LocationInPerson && d.CentreID == "" {
		problems = append(problems, "centre_id is required in person")
	}
	if d.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Create books a new appointment in scheduled status. A repeated idempotencyKey
// returns the appointment created the first time.
func (s *Service) Create(ctx context.Context, d Draft, idempotencyKey string) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "appointments.create", attribute.String("practitioner_id", d.PractitionerID))
	defer span.End()

	if idempotencyKey != "" {
		existing, ok, err := s.store.LookupIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return model.Appointment{}, fail(span, err)
		}
		if ok {
			span.SetAttributes(attribute.Bool("idempotent_replay", true))
			return existing, nil
		}
	}

	if err := d.validate(); err != nil {
		return model.Appointment{}, fail(span, err)
	}
	end, err := EndTime(d.StartTime, d.Duration)
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	start := wh.MustClock(d.StartTime).String()

	now := s.now()
	appt := model.Appointment{
		ID:             s.newID(),
		ClientID:       d.ClientID,
		ClientName:     strings.TrimSpace(d.ClientName),
		ClientEmail:    d.ClientEmail,
		ClientPhone:    d.ClientPhone,
		PractitionerID: d.PractitionerID,
		Date:           d.Date,
		StartTime:      start,
		EndTime:        end,
		Duration:       d.Duration,
		ServiceID:      d.ServiceID,
		ServiceType:    d.ServiceType,
		LocationMode:   d.LocationMode,
		Status:         model.StatusScheduled,
		PaymentStatus:  model.PaymentPending,
		Price:          d.Price,
		Notes:          d.Notes,
		ReminderSent:   false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if d.LocationMode == model.LocationInPerson {
		appt.CentreID = d.CentreID
	}

	var stored model.Appointment
	var replayed bool
	err = s.lockSlot(ctx, appt, func(ctx context.Context) error {
		// Concurrent retries queue on the same lock; replay the first result.
		if idempotencyKey != "" {
			existing, ok, err := s.store.LookupIdempotencyKey(ctx, idempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				stored, replayed = existing, true
				return nil
			}
		}
		if err := s.checkSlot(ctx, appt); err != nil {
			return err
		}
		var err error
		stored, replayed, err = s.store.Insert(ctx, appt, idempotencyKey)
		if storage.IsConflict(err) {
			return ErrSlotTaken
		}
		return err
	})
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("appointment_id", stored.ID))
	if !replayed {
		s.publish(ctx, events.AppointmentBooked, stored)
	}
	return stored, nil
}

// Patch lists the editable fields of an appointment; nil means unchanged.
// Status is not patchable; use Transition.
type Patch struct {
	ClientID          *string              `json:"client_id,omitempty"`
	ClientName        *string              `json:"client_name,omitempty"`
	ClientEmail       *string              `json:"client_email,omitempty"`
	ClientPhone       *string              `json:"client_phone,omitempty"`
	PractitionerID    *string              `json:"practitioner_id,omitempty"`
	Date              *string              `json:"date,omitempty"`
	StartTime         *string              `json:"start_time,omitempty"`
	Duration          *int                 `json:"duration,omitempty"`
	ServiceID         *string              `json:"service_id,omitempty"`
	ServiceType       *string              `json:"service_type,omitempty"`
	LocationMode      *model.LocationMode  `json:"location_mode,omitempty"`
	CentreID          *string              `json:"centre_id,omitempty"`
	Price             *float64             `json:"price,omitempty"`
	PaymentStatus     *model.PaymentStatus `json:"payment_status,omitempty"`
	Notes             *string              `json:"notes,omitempty"`
	PractitionerNotes *string              `json:"practitioner_notes,omitempty"`
	ReminderSent      *bool                `json:"reminder_sent,omitempty"`
}

func (p Patch) movesSlot() bool {
	return p.PractitionerID != nil || p.Date != nil || p.StartTime != nil || p.Duration != nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Update merges patch into the appointment and refreshes UpdatedAt. Moving the
// slot re-derives EndTime and re-checks conflicts.
func (s *Service) Update(ctx context.Context, id string, p Patch) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "appointments.update", attribute.String("appointment_id", id))
	defer span.End()

	updated, err := s.mutate(ctx, id, func(ctx context.Context, current model.Appointment) (model.Appointment, error) {
		next := current
		set(&next.ClientID, p.ClientID)
		set(&next.ClientName, p.ClientName)
		set(&next.ClientEmail, p.ClientEmail)
		set(&next.ClientPhone, p.ClientPhone)
		set(&next.PractitionerID, p.PractitionerID)
		set(&next.Date, p.Date)
		set(&next.StartTime, p.StartTime)
		set(&next.Duration, p.Duration)
		set(&next.ServiceID, p.ServiceID)
		set(&next.ServiceType, p.ServiceType)
		set(&next.LocationMode, p.LocationMode)
		set(&next.CentreID, p.CentreID)
		set(&next.Price, p.Price)
		set(&next.PaymentStatus, p.PaymentStatus)
		set(&next.Notes, p.Notes)
		set(&next.PractitionerNotes, p.PractitionerNotes)
		set(&next.ReminderSent, p.ReminderSent)
		if next.LocationMode == model.LocationVirtual {
			next.CentreID = ""
		}

		draft := Draft{
			ClientName: next.ClientName, PractitionerID: next.PractitionerID, Date: next.Date,
			LocationMode: next.LocationMode, CentreID: next.CentreID, Price: next.Price,
		}
		if err := draft.validate(); err != nil {
			return model.Appointment{}, err
		}

		next.UpdatedAt = s.now()
		if !p.movesSlot() {
			return next, s.save(ctx, next)
		}

		end, err := EndTime(next.StartTime, next.Duration)
		if err != nil {
			return model.Appointment{}, err
		}
		next.EndTime = end
		next.StartTime = wh.MustClock(next.StartTime).String()
		err = s.withSlot(ctx, next, func(ctx context.Context) error {
			return s.save(ctx, next)
		})
		return next, err
	})
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	s.publish(ctx, events.AppointmentUpdated, updated)
	return updated, nil
}

// Cancel marks the appointment cancelled and appends reason to its notes.
// Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, id, reason string) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "appointments.cancel", attribute.String("appointment_id", id))
	defer span.End()

	changed := false
	appt, err := s.mutate(ctx, id, func(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
		if appt.Status == model.StatusCancelled {
			return appt, nil
		}
		if appt.Status.Terminal() {
			return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, model.StatusCancelled)
		}
		appt.Status = model.StatusCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			appt.Notes = strings.TrimSpace(appt.Notes + "\nCancelled: " + reason)
		}
		appt.UpdatedAt = s.now()
		changed = true
		return appt, s.save(ctx, appt)
	})
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	if changed {
		s.publish(ctx, events.AppointmentCancelled, appt)
	}
	return appt, nil
}

// Reschedule moves the appointment to date and start, keeping its duration.
func (s *Service) Reschedule(ctx context.Context, id, date, start string) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "appointments.reschedule", attribute.String("appointment_id", id))
	defer span.End()

	if _, err := wh.ParseDate(date); err != nil {
		return model.Appointment{}, fail(span, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid))
	}
	appt, err := s.mutate(ctx, id, func(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
		if appt.Status.Terminal() {
			return model.Appointment{}, fmt.Errorf("%w: cannot reschedule %s appointment", ErrInvalidTransition, appt.Status)
		}
		duration := appt.Duration
		if duration <= 0 {
			duration = FallbackDuration
		}
		end, err := EndTime(start, duration)
		if err != nil {
			return model.Appointment{}, err
		}

		appt.Date = date
		appt.StartTime = wh.MustClock(start).String()
		appt.EndTime = end
		appt.Duration = duration
		appt.UpdatedAt = s.now()
		err = s.withSlot(ctx, appt, func(ctx context.Context) error {
			return s.save(ctx, appt)
		})
		return appt, err
	})
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	s.publish(ctx, events.AppointmentRescheduled, appt)
	return appt, nil
}

// Complete marks the appointment completed and its payment settled.
func (s *Service) Complete(ctx context.Context, id string) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "appointments.complete", attribute.String("appointment_id", id))
	defer span.End()

	appt, err := s.mutate(ctx, id, func(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
		if appt.Status.Terminal() {
			return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, model.StatusCompleted)
		}
		appt.Status = model.StatusCompleted
		appt.PaymentStatus = model.PaymentPaid
		appt.UpdatedAt = s.now()
		return appt, s.save(ctx, appt)
	})
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	s.publish(ctx, events.AppointmentCompleted, appt)
	return appt, nil
}

var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.StatusScheduled:  {model.StatusConfirmed, model.StatusInProgress, model.StatusCompleted, model.StatusCancelled, model.StatusNoShow},
	model.StatusConfirmed:  {model.StatusInProgress, model.StatusCompleted, model.StatusCancelled, model.StatusNoShow},
	model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
}

func CanTransition(from, to model.AppointmentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the appointment to status to. Cancelling and completing go
// through Cancel and Complete so their side effects apply.
func (s *Service) Transition(ctx context.Context, id string, to model.AppointmentStatus) (model.Appointment, error) {
	switch to {
	case model.StatusCancelled:
		return s.Cancel(ctx, id, "")
	case model.StatusCompleted:
		return s.Complete(ctx, id)
	}

	ctx, span := s.startSpan(ctx, "appointments.transition",
		attribute.String("appointment_id", id), attribute.String("to", string(to)))
	defer span.End()

	if !to.Valid() {
		return model.Appointment{}, fail(span, fmt.Errorf("%w: unknown status %q", ErrInvalid, to))
	}
	changed := false
	appt, err := s.mutate(ctx, id, func(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
		if appt.Status == to {
			return appt, nil
		}
		if !CanTransition(appt.Status, to) {
			return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
		}
		appt.Status = to
		appt.UpdatedAt = s.now()
		changed = true
		return appt, s.save(ctx, appt)
	})
	if err != nil {
		return model.Appointment{}, fail(span, err)
	}
	if changed {
		s.publish(ctx, events.AppointmentStatusChanged, appt)
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.get(ctx, id)
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	return s.store.ListByDate(ctx, date)
}

func (s *Service) List(ctx context.Context) ([]model.Appointment, error) {
	return s.store.List(ctx)
}

// mutate re-reads the appointment under its own lock and hands it to fn, so
// concurrent mutations of one appointment apply in turn. The appointment lock is
// always taken before any slot lock.
func (s *Service) mutate(ctx context.Context, id string, fn func(context.Context, model.Appointment) (model.Appointment, error)) (model.Appointment, error) {
	release, err := s.locker.Acquire(ctx, locks.AppointmentKey(id))
	if err != nil {
		if errors.Is(err, locks.ErrLocked) {
			return model.Appointment{}, fmt.Errorf("%w: %s", ErrBusy, id)
		}
		return model.Appointment{}, err
	}
	defer s.release(ctx, release, id)

	current, err := s.get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	next, err := fn(ctx, current)
	if err != nil {
		return model.Appointment{}, err
	}
	return next, nil
}

// slotKey is the lock writers of appt's slot contend on. In overlap mode two
// bookings can collide without sharing a start time, so the whole day is one
// lock.
func (s *Service) slotKey(appt model.Appointment) string {
	staffKey := appt.PractitionerID
	if s.cfg.ConflictScope == availability.ScopePractice {
		staffKey = ""
	}
	start := appt.StartTime
	if s.cfg.ConflictMode == availability.ConflictOverlap {
		start = ""
	}
	return locks.SlotKey(staffKey, appt.Date, start)
}

// lockSlot runs write while holding the slot lock for appt.
func (s *Service) lockSlot(ctx context.Context, appt model.Appointment, write func(context.Context) error) error {
	release, err := s.locker.Acquire(ctx, s.slotKey(appt))
	if err != nil {
		if errors.Is(err, locks.ErrLocked) {
			return fmt.Errorf("%w: %v", ErrSlotTaken, err)
		}
		return err
	}
	defer s.release(ctx, release, appt.ID)
	return write(ctx)
}

// withSlot checks conflicts and runs write under the slot lock.
func (s *Service) withSlot(ctx context.Context, appt model.Appointment, write func(context.Context) error) error {
	return s.lockSlot(ctx, appt, func(ctx context.Context) error {
		if err := s.checkSlot(ctx, appt); err != nil {
			return err
		}
		return write(ctx)
	})
}

// checkSlot fails with ErrSlotTaken when appt collides with a stored
// appointment. Appointments that no longer block a slot always pass.
func (s *Service) checkSlot(ctx context.Context, appt model.Appointment) error {
	if !appt.Blocks() {
		return nil
	}
	existing, err := s.store.ListByDate(ctx, appt.Date)
	if err != nil {
		return err
	}
	opts := availability.Options{
		Mode:     s.cfg.ConflictMode,
		Scope:    s.cfg.ConflictScope,
		Duration: appt.Duration,
		IgnoreID: appt.ID,
	}
	if other, taken := availability.FindConflict(existing, appt.PractitionerID, appt.Date, wh.MustClock(appt.StartTime), opts); taken {
		return fmt.Errorf("%w: conflicts with %s", ErrSlotTaken, other)
	}
	return nil
}

func (s *Service) release(ctx context.Context, release locks.Release, id string) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("release lock failed", "appointment_id", id, "err", err)
	}
}

func (s *Service) get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if storage.IsNotFound(err) {
		return model.Appointment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return appt, err
}

func (s *Service) save(ctx context.Context, appt model.Appointment) error {
	err := s.store.Save(ctx, appt)
	switch {
	case storage.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrNotFound, appt.ID)
	case storage.IsConflict(err):
		return ErrSlotTaken
	}
	return err
}

// publish is best effort: the appointment is already stored.
func (s *Service) publish(ctx context.Context, eventType string, appt model.Appointment) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(eventType, appt)); err != nil {
		s.logger.Warn("publish appointment event failed", "event_type", eventType, "appointment_id", appt.ID, "err", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("appointments").Start(ctx, name, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
