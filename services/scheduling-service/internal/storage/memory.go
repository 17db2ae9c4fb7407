package storage

import (
	"context"
	"sync"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

// MemoryStore keeps appointments in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]model.Appointment
	keys  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: map[string]model.Appointment{},
		keys: map[string]string{},
	}
}

func (s *MemoryStore) Insert(_ context.Context, appt model.Appointment, idempotencyKey string) (model.Appointment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" {
		if id, ok := s.keys[idempotencyKey]; ok {
			return s.byID[id], true, nil
		}
	}
	if _, exists := s.byID[appt.ID]; exists {
		return model.Appointment{}, false, ErrDuplicateSlot
	}
	s.byID[appt.ID] = appt
	s.order = append(s.order, appt.ID)
	if idempotencyKey != "" {
		s.keys[idempotencyKey] = appt.ID
	}
	return appt, false, nil
}

func (s *MemoryStore) LookupIdempotencyKey(_ context.Context, key string) (model.Appointment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[key]
	if !ok {
		return model.Appointment{}, false, nil
	}
	return s.byID[id], true, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return appt, nil
}

func (s *MemoryStore) Save(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[appt.ID]; !ok {
		return ErrNotFound
	}
	s.byID[appt.ID] = appt
	return nil
}

func (s *MemoryStore) ListByDate(_ context.Context, date string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, id := range s.order {
		if a := s.byID[id]; a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
