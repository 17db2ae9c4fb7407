// Package booking drives the multi-step booking and editing flow. A flow is an
// immutable State advanced by Orchestrator.Apply; each step narrows the next one
// and clears downstream selections that stop being valid.
package booking

import "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"

type State struct {
	// EditingID is set when the flow edits an existing appointment.
	EditingID string `json:"editing_id,omitempty"`

	ClientID      string `json:"client_id,omitempty"`
	ClientName    string `json:"client_name,omitempty"`
	ClientEmail   string `json:"client_email,omitempty"`
	ClientPhone   string `json:"client_phone,omitempty"`
	ClientCountry string `json:"client_country,omitempty"`

	Location  model.LocationMode `json:"location,omitempty"`
	CentreID  string             `json:"centre_id,omitempty"`
	ServiceID string             `json:"service_id,omitempty"`
	StaffID   string             `json:"staff_id,omitempty"`
	Date      string             `json:"date,omitempty"`
	Slot      string             `json:"slot,omitempty"`
	Notes     string             `json:"notes,omitempty"`

	CentreCandidates  []model.Centre      `json:"centre_candidates,omitempty"`
	ServiceCandidates []model.Service     `json:"service_candidates,omitempty"`
	StaffCandidates   []model.StaffMember `json:"staff_candidates,omitempty"`
	Slots             []model.TimeSlot    `json:"slots,omitempty"`
}

type Step string

const (
	StepIdle           Step = "idle"
	StepClientChosen   Step = "client_chosen"
	StepLocationChosen Step = "location_chosen"
	StepCentreChosen   Step = "centre_chosen"
	StepServicesLoaded Step = "services_loaded"
	StepServiceChosen  Step = "service_chosen"
	StepStaffChosen    Step = "staff_chosen"
	StepDateChosen     Step = "date_chosen"
	StepSlotChosen     Step = "slot_chosen"
	StepSubmittable    Step = "submittable"
)

// Step reports how far along the flow the state is.
func (s State) Step() Step {
	switch {
	case len(Validate(s)) == 0:
		return StepSubmittable
	case s.Slot != "":
		return StepSlotChosen
	case s.Date != "" && s.StaffID != "":
		return StepDateChosen
	case s.StaffID != "":
		return StepStaffChosen
	case s.ServiceID != "":
		return StepServiceChosen
	case s.Location == model.LocationInPerson && s.CentreID != "":
		return StepCentreChosen
	case s.Location == model.LocationVirtual:
		return StepServicesLoaded
	case s.Location != "":
		return StepLocationChosen
	case s.ClientID != "" || s.ClientName != "":
		return StepClientChosen
	}
	return StepIdle
}

func (s State) centre() *model.Centre {
	for i := range s.CentreCandidates {
		if s.CentreCandidates[i].ID == s.CentreID {
			c := s.CentreCandidates[i]
			return &c
		}
	}
	return nil
}

func (s State) service() *model.Service {
	for i := range s.ServiceCandidates {
		if s.ServiceCandidates[i].ID == s.ServiceID {
			svc := s.ServiceCandidates[i]
			return &svc
		}
	}
	return nil
}

func (s State) slotAvailable(t string) bool {
	for _, slot := range s.Slots {
		if slot.Time == t {
			return slot.Available
		}
	}
	return false
}
