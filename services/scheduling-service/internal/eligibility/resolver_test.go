package eligibility

import (
	"testing"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

func demoResolver(t *testing.T) (*Resolver, *catalog.Memory) {
	t.Helper()
	m := catalog.NewMemory()
	if err := m.Load(catalog.Demo()); err != nil {
		t.Fatalf("load demo: %v", err)
	}
	return NewResolver(m), m
}

func ids[T any](items []T, id func(T) string) map[string]bool {
	out := map[string]bool{}
	for _, it := range items {
		out[id(it)] = true
	}
	return out
}

func TestCentresForCountry(t *testing.T) {
	r, _ := demoResolver(t)
	if got := r.CentresForCountry("IE"); len(got) != 1 || got[0].ID != "centre-dublin" {
		t.Fatalf("expected only dublin, got %+v", got)
	}
	if got := r.CentresForCountry("US"); len(got) != 0 {
		t.Fatalf("expected none, got %d", len(got))
	}
	got := r.CentresForCountry("GB")
	if len(got) != 2 {
		t.Fatalf("expected 2 GB centres, got %d", len(got))
	}
	for _, c := range got {
		if c.ID == "centre-leeds" {
			t.Fatal("inactive centre returned")
		}
	}
}

func TestServicesAtCentre(t *testing.T) {
	r, m := demoResolver(t)
	manchester, _ := m.GetCentreByID("centre-manchester")
	got := ids(r.ServicesAtCentre(&manchester), func(s model.Service) string { return s.ID })
	if len(got) != 2 || !got["svc-physio"] || !got["svc-consult"] {
		t.Fatalf("unexpected services at manchester: %v", got)
	}

	virtual := r.ServicesAtCentre(nil)
	if len(virtual) != 3 {
		t.Fatalf("expected every active service in virtual mode, got %d", len(virtual))
	}
	if ContainsService(virtual, "svc-cryo") {
		t.Fatal("inactive service returned")
	}
}

// Every in-person staff candidate set must equal the brute-force filter over the catalog.
func TestCascadeInvariant(t *testing.T) {
	r, m := demoResolver(t)
	allStaff := catalog.Demo().Staff

	for _, centre := range m.ListActiveCentres() {
		for _, svc := range r.ServicesAtCentre(&centre) {
			want := map[string]bool{}
			for _, st := range allStaff {
				if st.Status == model.StaffActive && st.IsAvailableForBooking &&
					st.AssignedTo(centre.ID) && st.Offers(svc.ID) {
					want[st.ID] = true
				}
			}
			got := ids(r.StaffForServiceAtCentre(&svc, &centre, model.LocationInPerson),
				func(s model.StaffMember) string { return s.ID })
			if len(got) != len(want) {
				t.Fatalf("%s/%s: got %v want %v", centre.ID, svc.ID, got, want)
			}
			for id := range want {
				if !got[id] {
					t.Fatalf("%s/%s: missing %s", centre.ID, svc.ID, id)
				}
			}
		}
	}
}

func TestStaffVirtualDropsCentreFilter(t *testing.T) {
	r, m := demoResolver(t)
	massage, _ := m.GetServiceByID("svc-massage")

	got := ids(r.StaffForServiceAtCentre(&massage, nil, model.LocationVirtual),
		func(s model.StaffMember) string { return s.ID })
	// staff-lee is on leave.
	if len(got) != 2 || !got["staff-amira"] || !got["staff-siobhan"] {
		t.Fatalf("unexpected virtual staff: %v", got)
	}
}

func TestStaffMissingPrerequisites(t *testing.T) {
	r, m := demoResolver(t)
	massage, _ := m.GetServiceByID("svc-massage")
	if got := r.StaffForServiceAtCentre(nil, nil, model.LocationVirtual); got != nil {
		t.Fatalf("expected nil without service, got %v", got)
	}
	if got := r.StaffForServiceAtCentre(&massage, nil, model.LocationInPerson); got != nil {
		t.Fatalf("expected nil without centre in person, got %v", got)
	}
	if got := r.StaffForServiceAtCentre(&massage, nil, ""); got != nil {
		t.Fatalf("expected nil without mode, got %v", got)
	}
}
