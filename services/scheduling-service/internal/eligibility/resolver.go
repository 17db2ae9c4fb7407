// Package eligibility narrows each booking dimension to the candidates that are
// actually bookable given the selections already made. Missing prerequisites
// yield empty results, never errors.
package eligibility

import (
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

type Resolver struct {
	catalog catalog.Reader
}

func NewResolver(c catalog.Reader) *Resolver {
	return &Resolver{catalog: c}
}

// CentresForCountry returns the active centres in a country. An empty result
// means the client can only be served virtually.
func (r *Resolver) CentresForCountry(countryCode string) []model.Centre {
	return r.catalog.ListCentresByCountry(countryCode)
}

// ServicesAtCentre returns the active services offered at centre, or every
// active service when centre is nil (virtual mode).
func (r *Resolver) ServicesAtCentre(centre *model.Centre) []model.Service {
	active := r.catalog.ListActiveServices()
	if centre == nil {
		return active
	}
	var out []model.Service
	for _, svc := range active {
		if centre.OffersService(svc.ID) {
			out = append(out, svc)
		}
	}
	return out
}

// StaffForServiceAtCentre returns bookable staff offering service. In person,
// they must also be assigned to centre; a nil centre then yields nothing.
func (r *Resolver) StaffForServiceAtCentre(service *model.Service, centre *model.Centre, mode model.LocationMode) []model.StaffMember {
	if service == nil || !mode.Valid() {
		return nil
	}
	if mode == model.LocationInPerson && centre == nil {
		return nil
	}
	var out []model.StaffMember
	for _, st := range r.catalog.ListStaffByService(service.ID) {
		if !st.Bookable() {
			continue
		}
		if mode == model.LocationInPerson && !st.AssignedTo(centre.ID) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// ContainsService, ContainsStaff and ContainsCentre test candidate membership.
func ContainsService(set []model.Service, id string) bool {
	for _, s := range set {
		if s.ID == id {
			return true
		}
	}
	return false
}

func ContainsStaff(set []model.StaffMember, id string) bool {
	for _, s := range set {
		if s.ID == id {
			return true
		}
	}
	return false
}

func ContainsCentre(set []model.Centre, id string) bool {
	for _, c := range set {
		if c.ID == id {
			return true
		}
	}
	return false
}
