package booking

import (
	"sort"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

// ValidationErrors maps a field name to what is wrong with it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "booking incomplete: " + strings.Join(parts, ", ")
}

// Validate lists what is missing before s can be submitted. A nil result means
// the state is submittable.
func Validate(s State) ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(s.ClientName) == "" {
		errs["client_name"] = "required"
	}
	if s.ClientID == "" {
		if strings.TrimSpace(s.ClientEmail) == "" {
			errs["client_email"] = "required when no existing client is selected"
		}
		if strings.TrimSpace(s.ClientPhone) == "" {
			errs["client_phone"] = "required when no existing client is selected"
		}
	}
	if !s.Location.Valid() {
		errs["location"] = "choose in-person or virtual"
	}
	if s.Location == model.LocationInPerson && s.CentreID == "" {
		errs["centre_id"] = "required for in-person appointments"
	}
	if s.ServiceID == "" {
		errs["service_id"] = "required"
	}
	if s.StaffID == "" {
		errs["staff_id"] = "required"
	}
	if s.Date == "" {
		errs["date"] = "required"
	}
	if s.Slot == "" {
		errs["slot"] = "required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
