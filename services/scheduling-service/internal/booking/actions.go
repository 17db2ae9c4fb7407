package booking

import (
	"encoding/json"
	"fmt"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

// Action is one user step. The concrete types below are the only actions.
type Action interface {
	action()
}

type SetClient struct{ ClientID string }

// SetContact records client details typed in by hand.
type SetContact struct{ Name, Email, Phone string }

type SetLocation struct{ Mode model.LocationMode }

type SetCentre struct{ CentreID string }

type SetService struct{ ServiceID string }

type SetStaff struct{ StaffID string }

type SetDate struct{ Date string }

type SetSlot struct{ Time string }

type SetNotes struct{ Notes string }

type Reset struct{}

func (SetClient) action()   {}
func (SetContact) action()  {}
func (SetLocation) action() {}
func (SetCentre) action()   {}
func (SetService) action()  {}
func (SetStaff) action()    {}
func (SetDate) action()     {}
func (SetSlot) action()     {}
func (SetNotes) action()    {}
func (Reset) action()       {}

// ActionRequest is the wire form of an Action.
type ActionRequest struct {
	Type      string `json:"type"`
	ClientID  string `json:"client_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
	CentreID  string `json:"centre_id,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
	StaffID   string `json:"staff_id,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (r ActionRequest) Action() (Action, error) {
	switch r.Type {
	case "set_client":
		return SetClient{ClientID: r.ClientID}, nil
	case "set_contact":
		return SetContact{Name: r.Name, Email: r.Email, Phone: r.Phone}, nil
	case "set_location":
		mode := model.LocationMode(r.Location)
		if !mode.Valid() {
			return nil, fmt.Errorf("unknown location %q", r.Location)
		}
		return SetLocation{Mode: mode}, nil
	case "set_centre":
		return SetCentre{CentreID: r.CentreID}, nil
	case "set_service":
		return SetService{ServiceID: r.ServiceID}, nil
	case "set_staff":
		return SetStaff{StaffID: r.StaffID}, nil
	case "set_date":
		return SetDate{Date: r.Date}, nil
	case "set_slot":
		return SetSlot{Time: r.Time}, nil
	case "set_notes":
		return SetNotes{Notes: r.Notes}, nil
	case "reset":
		return Reset{}, nil
	}
	return nil, fmt.Errorf("unknown action type %q", r.Type)
}

func DecodeAction(raw []byte) (Action, error) {
	var req ActionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return req.Action()
}
