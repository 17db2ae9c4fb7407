// Package scheduling is the read side the booking flow and HTTP layer query:
// candidate centres, services and staff, and the bookable slots for a day.
package scheduling

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/eligibility"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	wh "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AppointmentLister is the slice of the appointment collection slot queries need.
type AppointmentLister interface {
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
}

type Config struct {
	Granularity int
	// FitServiceDuration drops slots whose whole service span would not fit.
	FitServiceDuration bool
	ConflictMode       availability.ConflictMode
	ConflictScope      availability.ConflictScope
}

type Service struct {
	catalog  catalog.Reader
	resolver *eligibility.Resolver
	appts    AppointmentLister
	cfg      Config
}

func NewService(c catalog.Reader, appts AppointmentLister, cfg Config) *Service {
	if cfg.Granularity <= 0 {
		cfg.Granularity = availability.DefaultGranularity
	}
	return &Service{
		catalog:  c,
		resolver: eligibility.NewResolver(c),
		appts:    appts,
		cfg:      cfg,
	}
}

func (s *Service) Catalog() catalog.Reader {
	return s.catalog
}

func (s *Service) ResolveCentreCandidates(ctx context.Context, countryCode string) []model.Centre {
	_, span := tracer().Start(ctx, "scheduling.resolve_centres", trace.WithAttributes(attribute.String("country", countryCode)))
	defer span.End()
	out := s.resolver.CentresForCountry(countryCode)
	span.SetAttributes(attribute.Int("candidates", len(out)))
	return out
}

// ResolveServiceCandidates lists services offered at centre; nil centre means virtual.
func (s *Service) ResolveServiceCandidates(ctx context.Context, centre *model.Centre) []model.Service {
	_, span := tracer().Start(ctx, "scheduling.resolve_services")
	defer span.End()
	out := s.resolver.ServicesAtCentre(centre)
	span.SetAttributes(attribute.Int("candidates", len(out)))
	return out
}

func (s *Service) ResolveStaffCandidates(ctx context.Context, service *model.Service, centre *model.Centre, mode model.LocationMode) []model.StaffMember {
	_, span := tracer().Start(ctx, "scheduling.resolve_staff", trace.WithAttributes(attribute.String("location_mode", string(mode))))
	defer span.End()
	out := s.resolver.StaffForServiceAtCentre(service, centre, mode)
	span.SetAttributes(attribute.Int("candidates", len(out)))
	return out
}

// GetAvailableSlots lists the staff member's slots on date with availability
// marked against the current appointments. centreID may be empty, in which case
// the first assigned centre with hours that day is used. Unknown ids or a day off
// yield an empty result; only reading appointments can fail.
func (s *Service) GetAvailableSlots(ctx context.Context, staffID, date, serviceID, centreID string) ([]model.TimeSlot, error) {
	ctx, span := tracer().Start(ctx, "scheduling.available_slots", trace.WithAttributes(
		attribute.String("staff_id", staffID),
		attribute.String("date", date),
		attribute.String("centre_id", centreID),
	))
	defer span.End()

	day, err := wh.ParseDate(date)
	if err != nil {
		return []model.TimeSlot{}, nil
	}
	staff, ok := s.catalog.GetStaffByID(staffID)
	if !ok || !staff.Bookable() {
		return []model.TimeSlot{}, nil
	}
	duration := s.duration(staff, serviceID)

	hours, centre, ok := s.workingDay(staff, centreID, day)
	if !ok {
		return []model.TimeSlot{}, nil
	}

	var candidates []wh.Clock
	if s.cfg.FitServiceDuration {
		candidates = availability.GenerateFittingSlots(hours, s.cfg.Granularity, duration)
	} else {
		candidates = availability.GenerateCandidateSlots(hours, s.cfg.Granularity)
	}
	if centre != nil && centre.Hours != nil {
		open := candidates[:0:0]
		for _, t := range candidates {
			if wh.IsOpenAt(centre.Hours, day, t) {
				open = append(open, t)
			}
		}
		candidates = open
	}

	appts, err := s.appts.ListByDate(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	slots := availability.MarkAvailability(candidates, appts, staff.ID, date, availability.Options{
		Mode:     s.cfg.ConflictMode,
		Scope:    s.cfg.ConflictScope,
		Duration: duration,
	})
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

// duration is the service length, falling back to the staff default and then one slot.
func (s *Service) duration(staff model.StaffMember, serviceID string) int {
	if svc, ok := s.catalog.GetServiceByID(serviceID); ok && svc.DurationMinutes > 0 {
		return svc.DurationMinutes
	}
	if staff.AppointmentDuration > 0 {
		return staff.AppointmentDuration
	}
	return s.cfg.Granularity
}

func (s *Service) workingDay(staff model.StaffMember, centreID string, day time.Time) (wh.DaySchedule, *model.Centre, bool) {
	if centreID != "" {
		weekly, ok := staff.ScheduleAt(centreID)
		if !ok {
			return wh.DaySchedule{}, nil, false
		}
		hours, ok := weekly.Day(day)
		if !ok || !hours.IsActive {
			return wh.DaySchedule{}, nil, false
		}
		var centre *model.Centre
		if c, found := s.catalog.GetCentreByID(centreID); found {
			centre = &c
		}
		return hours, centre, true
	}
	for _, id := range staff.AssignedCentres {
		weekly, ok := staff.ScheduleAt(id)
		if !ok {
			continue
		}
		if hours, ok := weekly.Day(day); ok && hours.IsActive {
			return hours, nil, true
		}
	}
	return wh.DaySchedule{}, nil, false
}

func tracer() trace.Tracer {
	return otel.Tracer("scheduling")
}
