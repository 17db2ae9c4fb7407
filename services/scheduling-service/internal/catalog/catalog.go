// Package catalog holds the centre, service, staff and client directories the
// scheduling core reads. Records are created and edited elsewhere; the core
// treats everything returned here as read-only.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

type Reader interface {
	ListActiveCentres() []model.Centre
	ListCentresByCountry(countryCode string) []model.Centre
	GetCentreByID(id string) (model.Centre, bool)

	ListActiveServices() []model.Service
	GetServiceByID(id string) (model.Service, bool)

	ListStaffByCentre(centreID string) []model.StaffMember
	ListStaffByService(serviceID string) []model.StaffMember
	GetStaffByID(id string) (model.StaffMember, bool)

	GetClientByID(id string) (model.Client, bool)
}

// Memory is an in-process catalog. Slices keep insertion order so callers see catalog order.
type Memory struct {
	mu       sync.RWMutex
	centres  []model.Centre
	services []model.Service
	staff    []model.StaffMember
	clients  []model.Client
}

func NewMemory() *Memory {
	return &Memory{}
}

// Snapshot is the on-disk catalog format.
type Snapshot struct {
	Centres  []model.Centre      `json:"centres"`
	Services []model.Service     `json:"services"`
	Staff    []model.StaffMember `json:"staff"`
	Clients  []model.Client      `json:"clients"`
}

func (m *Memory) Load(s Snapshot) error {
	for _, c := range s.Centres {
		if err := c.Hours.Validate(); err != nil {
			return fmt.Errorf("centre %s: %w", c.ID, err)
		}
	}
	for _, st := range s.Staff {
		for centreID, w := range st.WorkingHours {
			if err := w.Validate(); err != nil {
				return fmt.Errorf("staff %s at %s: %w", st.ID, centreID, err)
			}
		}
	}
	for _, svc := range s.Services {
		if svc.DurationMinutes <= 0 {
			return fmt.Errorf("service %s: duration must be positive", svc.ID)
		}
		if svc.Price < 0 {
			return fmt.Errorf("service %s: price must not be negative", svc.ID)
		}
	}
	for _, c := range s.Centres {
		m.PutCentre(c)
	}
	for _, svc := range s.Services {
		m.PutService(svc)
	}
	for _, st := range s.Staff {
		m.PutStaff(st)
	}
	for _, c := range s.Clients {
		m.PutClient(c)
	}
	return nil
}

func (m *Memory) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return m.Load(s)
}

func (m *Memory) PutCentre(c model.Centre) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.centres = upsert(m.centres, c, func(x model.Centre) string { return x.ID })
}

func (m *Memory) PutService(s model.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = upsert(m.services, s, func(x model.Service) string { return x.ID })
}

func (m *Memory) PutStaff(s model.StaffMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff = upsert(m.staff, s, func(x model.StaffMember) string { return x.ID })
}

func (m *Memory) PutClient(c model.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = upsert(m.clients, c, func(x model.Client) string { return x.ID })
}

func (m *Memory) ListActiveCentres() []model.Centre {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.centres, func(c model.Centre) bool { return c.IsActive })
}

func (m *Memory) ListCentresByCountry(countryCode string) []model.Centre {
	code := strings.TrimSpace(countryCode)
	if code == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.centres, func(c model.Centre) bool {
		return c.IsActive && strings.EqualFold(c.CountryCode, code)
	})
}

func (m *Memory) GetCentreByID(id string) (model.Centre, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return find(m.centres, func(c model.Centre) bool { return c.ID == id })
}

func (m *Memory) ListActiveServices() []model.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.services, func(s model.Service) bool { return s.IsActive })
}

func (m *Memory) GetServiceByID(id string) (model.Service, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return find(m.services, func(s model.Service) bool { return s.ID == id })
}

func (m *Memory) ListStaffByCentre(centreID string) []model.StaffMember {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.staff, func(s model.StaffMember) bool { return s.AssignedTo(centreID) })
}

func (m *Memory) ListStaffByService(serviceID string) []model.StaffMember {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.staff, func(s model.StaffMember) bool { return s.Offers(serviceID) })
}

func (m *Memory) GetStaffByID(id string) (model.StaffMember, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return find(m.staff, func(s model.StaffMember) bool { return s.ID == id })
}

func (m *Memory) GetClientByID(id string) (model.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return find(m.clients, func(c model.Client) bool { return c.ID == id })
}

func upsert[T any](items []T, item T, key func(T) string) []T {
	for i := range items {
		if key(items[i]) == key(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func find[T any](items []T, match func(T) bool) (T, bool) {
	for _, it := range items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

var _ Reader = (*Memory)(nil)
