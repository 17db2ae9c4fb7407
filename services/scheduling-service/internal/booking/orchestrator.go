package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/appointments"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/eligibility"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/scheduling"
	wh "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
)

// Appointments is the part of the mutation API a booking flow commits through.
type Appointments interface {
	Create(ctx context.Context, d appointments.Draft, idempotencyKey string) (model.Appointment, error)
	Update(ctx context.Context, id string, p appointments.Patch) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
}

type Orchestrator struct {
	sched *scheduling.Service
	appts Appointments
}

func NewOrchestrator(sched *scheduling.Service, appts Appointments) *Orchestrator {
	return &Orchestrator{sched: sched, appts: appts}
}

// Apply returns the state after action a. The input state is left untouched.
// Selections that a is not allowed to make (an id outside the current candidates,
// a booked slot) leave the state as it was. Only loading slots can fail.
func (o *Orchestrator) Apply(ctx context.Context, s State, a Action) (State, []Event, error) {
	r := &run{ctx: ctx, o: o, s: s}
	switch act := a.(type) {
	case SetClient:
		r.setClient(act.ClientID)
	case SetContact:
		r.s.ClientName = act.Name
		r.s.ClientEmail = act.Email
		r.s.ClientPhone = act.Phone
	case SetLocation:
		r.setLocation(act.Mode)
	case SetCentre:
		r.setCentre(act.CentreID)
	case SetService:
		r.setService(act.ServiceID)
	case SetStaff:
		r.setStaff(act.StaffID)
	case SetDate:
		r.setDate(act.Date)
	case SetSlot:
		r.setSlot(act.Time)
	case SetNotes:
		r.s.Notes = act.Notes
	case Reset:
		return State{}, nil, nil
	default:
		return s, nil, fmt.Errorf("unsupported action %T", a)
	}
	if r.err != nil {
		return s, nil, r.err
	}
	return r.s, r.finish(), nil
}

// Submit validates s and books it, or updates the edited appointment. On success
// the flow is reset to idle. Missing fields come back as ValidationErrors.
func (o *Orchestrator) Submit(ctx context.Context, s State, idempotencyKey string) (State, model.Appointment, error) {
	if errs := Validate(s); errs != nil {
		return s, model.Appointment{}, errs
	}
	svc := s.service()
	if svc == nil {
		found, ok := o.sched.Catalog().GetServiceByID(s.ServiceID)
		if !ok {
			return s, model.Appointment{}, ValidationErrors{"service_id": "unknown service"}
		}
		svc = &found
	}
	centreID := ""
	if s.Location == model.LocationInPerson {
		centreID = s.CentreID
	}

	var (
		appt model.Appointment
		err  error
	)
	if s.EditingID == "" {
		appt, err = o.appts.Create(ctx, appointments.Draft{
			ClientID:       s.ClientID,
			ClientName:     s.ClientName,
			ClientEmail:    s.ClientEmail,
			ClientPhone:    s.ClientPhone,
			PractitionerID: s.StaffID,
			Date:           s.Date,
			StartTime:      s.Slot,
			Duration:       svc.DurationMinutes,
			ServiceID:      svc.ID,
			ServiceType:    svc.Name,
			LocationMode:   s.Location,
			CentreID:       centreID,
			Price:          svc.Price,
			Notes:          s.Notes,
		}, idempotencyKey)
	} else {
		appt, err = o.submitEdit(ctx, s, *svc, centreID)
	}
	if err != nil {
		return s, model.Appointment{}, err
	}
	return State{}, appt, nil
}

func (o *Orchestrator) submitEdit(ctx context.Context, s State, svc model.Service, centreID string) (model.Appointment, error) {
	original, err := o.appts.Get(ctx, s.EditingID)
	if err != nil {
		return model.Appointment{}, err
	}
	p := appointments.Patch{
		ClientID:       &s.ClientID,
		ClientName:     &s.ClientName,
		ClientEmail:    &s.ClientEmail,
		ClientPhone:    &s.ClientPhone,
		PractitionerID: &s.StaffID,
		Date:           &s.Date,
		StartTime:      &s.Slot,
		Duration:       &svc.DurationMinutes,
		LocationMode:   &s.Location,
		CentreID:       &centreID,
		Notes:          &s.Notes,
	}
	// Name and price stay as booked unless the service itself changed.
	if svc.ID != original.ServiceID {
		p.ServiceID = &svc.ID
		p.ServiceType = &svc.Name
		p.Price = &svc.Price
	}
	return o.appts.Update(ctx, s.EditingID, p)
}

// StartEdit builds a flow pre-filled from an existing appointment. Selections the
// catalog no longer allows are dropped.
func (o *Orchestrator) StartEdit(ctx context.Context, id string) (State, error) {
	appt, err := o.appts.Get(ctx, id)
	if err != nil {
		return State{}, err
	}
	if appt.Status.Terminal() {
		return State{}, fmt.Errorf("%w: cannot edit %s appointment", appointments.ErrInvalidTransition, appt.Status)
	}

	s := State{
		EditingID:   appt.ID,
		ClientID:    appt.ClientID,
		ClientName:  appt.ClientName,
		ClientEmail: appt.ClientEmail,
		ClientPhone: appt.ClientPhone,
		Location:    appt.LocationMode,
		ServiceID:   appt.ServiceID,
		StaffID:     appt.PractitionerID,
		Date:        appt.Date,
		Slot:        appt.StartTime,
		Notes:       appt.Notes,
	}
	cat := o.sched.Catalog()
	if client, ok := cat.GetClientByID(appt.ClientID); ok {
		s.ClientCountry = client.CountryCode
	}
	if s.Location == model.LocationInPerson {
		s.CentreCandidates = o.centreOptions(ctx, s.ClientCountry)
		if centre, ok := cat.GetCentreByID(appt.CentreID); ok && !eligibility.ContainsCentre(s.CentreCandidates, centre.ID) {
			s.CentreCandidates = append(append([]model.Centre(nil), s.CentreCandidates...), centre)
		}
		s.CentreID = appt.CentreID
	}
	if s.ServiceID == "" {
		for _, svc := range cat.ListActiveServices() {
			if svc.Name == appt.ServiceType {
				s.ServiceID = svc.ID
				break
			}
		}
	}

	r := &run{ctx: ctx, o: o, s: s}
	r.refreshServices()
	if r.err != nil {
		return State{}, r.err
	}
	return r.s, nil
}

// centreOptions lists the centres a client may book in person: those in their
// country, or every active centre when the country is unknown.
func (o *Orchestrator) centreOptions(ctx context.Context, country string) []model.Centre {
	if country == "" {
		return o.sched.Catalog().ListActiveCentres()
	}
	return o.sched.ResolveCentreCandidates(ctx, country)
}

// run is one reduction step working on a private copy of the state.
type run struct {
	ctx     context.Context
	o       *Orchestrator
	s       State
	events  []Event
	cleared []string
	err     error
}

func (r *run) finish() []Event {
	if len(r.cleared) > 0 {
		r.events = append(r.events, Event{Kind: SelectionCleared, Fields: r.cleared})
	}
	return r.events
}

func (r *run) clear(fields ...string) {
	for _, f := range fields {
		var v *string
		switch f {
		case "centre_id":
			v = &r.s.CentreID
		case "service_id":
			v = &r.s.ServiceID
		case "staff_id":
			v = &r.s.StaffID
		case "slot":
			v = &r.s.Slot
		}
		if v != nil && *v != "" {
			*v = ""
			r.cleared = append(r.cleared, f)
		}
	}
}

func (r *run) setClient(id string) {
	if id == "" {
		r.s.ClientID, r.s.ClientName, r.s.ClientEmail, r.s.ClientPhone, r.s.ClientCountry = "", "", "", "", ""
		return
	}
	client, ok := r.o.sched.Catalog().GetClientByID(id)
	if !ok {
		return
	}
	r.s.ClientID = client.ID
	r.s.ClientName = client.Name
	r.s.ClientEmail = client.Email
	r.s.ClientPhone = client.Phone
	r.s.ClientCountry = client.CountryCode
	if r.s.Location == model.LocationInPerson {
		r.setLocation(model.LocationInPerson)
	}
}

func (r *run) setLocation(mode model.LocationMode) {
	switch mode {
	case model.LocationVirtual:
		r.s.Location = model.LocationVirtual
		r.s.CentreCandidates = nil
		r.clear("centre_id", "staff_id", "slot")
		r.s.Slots = nil
		r.refreshServices()
	case model.LocationInPerson:
		r.s.Location = model.LocationInPerson
		if r.s.ClientCountry == "" {
			r.s.CentreCandidates = r.o.centreOptions(r.ctx, "")
			if r.s.centre() == nil {
				r.clear("centre_id")
			}
			r.refreshServices()
			return
		}
		candidates := r.o.sched.ResolveCentreCandidates(r.ctx, r.s.ClientCountry)
		switch len(candidates) {
		case 0:
			r.events = append(r.events, Event{Kind: NoCentresAvailable})
			r.setLocation(model.LocationVirtual)
		case 1:
			r.s.CentreCandidates = candidates
			centre := candidates[0]
			r.events = append(r.events, Event{Kind: AutoSelected, Centre: &centre})
			r.setCentre(centre.ID)
		default:
			r.s.CentreCandidates = candidates
			r.events = append(r.events, Event{Kind: MultipleCentres, Candidates: candidates})
			if r.s.centre() == nil {
				r.clear("centre_id")
			}
			r.refreshServices()
		}
	}
}

func (r *run) setCentre(id string) {
	if r.s.Location != model.LocationInPerson {
		return
	}
	if id != "" && !eligibility.ContainsCentre(r.s.CentreCandidates, id) {
		return
	}
	if id == "" {
		r.clear("centre_id")
	}
	r.s.CentreID = id
	r.refreshServices()
}

func (r *run) setService(id string) {
	if id == "" {
		r.clear("service_id")
		r.refreshStaff()
		return
	}
	if r.s.ServiceID == id || !eligibility.ContainsService(r.s.ServiceCandidates, id) {
		return
	}
	r.s.ServiceID = id
	r.refreshStaff()
}

func (r *run) setStaff(id string) {
	if id != "" && !eligibility.ContainsStaff(r.s.StaffCandidates, id) {
		return
	}
	if id == "" {
		r.clear("staff_id")
	}
	r.s.StaffID = id
	r.clear("slot")
	r.refreshSlots()
}

func (r *run) setDate(date string) {
	if date != "" {
		if _, err := wh.ParseDate(date); err != nil {
			return
		}
	}
	r.s.Date = date
	r.clear("slot")
	r.refreshSlots()
}

func (r *run) setSlot(t string) {
	if t == "" {
		r.clear("slot")
		return
	}
	c, err := wh.ParseClock(t)
	if err != nil || !r.s.slotAvailable(c.String()) {
		return
	}
	r.s.Slot = c.String()
}

// refreshServices recomputes service candidates for the current location and
// centre, then cascades to staff.
func (r *run) refreshServices() {
	switch {
	case r.s.Location == model.LocationVirtual:
		r.s.ServiceCandidates = r.o.sched.ResolveServiceCandidates(r.ctx, nil)
	case r.s.Location == model.LocationInPerson && r.s.CentreID != "":
		r.s.ServiceCandidates = r.o.sched.ResolveServiceCandidates(r.ctx, r.s.centre())
	default:
		r.s.ServiceCandidates = nil
	}
	if r.s.ServiceID != "" && !eligibility.ContainsService(r.s.ServiceCandidates, r.s.ServiceID) {
		r.clear("service_id", "staff_id", "slot")
	}
	r.refreshStaff()
}

func (r *run) refreshStaff() {
	svc := r.s.service()
	if svc == nil {
		r.s.StaffCandidates = nil
		r.clear("staff_id", "slot")
		r.s.Slots = nil
		return
	}
	r.s.StaffCandidates = r.o.sched.ResolveStaffCandidates(r.ctx, svc, r.s.centre(), r.s.Location)
	if r.s.StaffID != "" && !eligibility.ContainsStaff(r.s.StaffCandidates, r.s.StaffID) {
		r.clear("staff_id", "slot")
	}
	r.refreshSlots()
}

// refreshSlots reloads slots for the chosen staff and date. A chosen slot that is
// no longer available is dropped.
func (r *run) refreshSlots() {
	if r.s.StaffID == "" || r.s.Date == "" {
		r.s.Slots = nil
		r.clear("slot")
		return
	}
	centreID := ""
	if r.s.Location == model.LocationInPerson {
		centreID = r.s.CentreID
	}
	slots, err := r.o.sched.GetAvailableSlots(r.ctx, r.s.StaffID, r.s.Date, r.s.ServiceID, centreID)
	if err != nil {
		r.err = err
		return
	}
	if r.s.EditingID != "" {
		for i := range slots {
			if slots[i].AppointmentID == r.s.EditingID {
				slots[i].Available = true
				slots[i].AppointmentID = ""
			}
		}
	}
	r.s.Slots = slots
	if r.s.Slot != "" && !r.s.slotAvailable(r.s.Slot) {
		r.clear("slot")
	}
}

// IsValidation reports whether err is a ValidationErrors map.
func IsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
