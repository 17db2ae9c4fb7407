package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrDuplicateSlot is returned when the backing store itself rejects a second
	// live booking for the same practitioner, date and start time.
	ErrDuplicateSlot = errors.New("slot already booked")
)

// Store is the appointment collection. Appointments are never deleted.
type Store interface {
	// Insert stores appt. When idempotencyKey is non-empty and was used before, the
	// appointment created under it is returned with replayed=true and nothing is written.
	Insert(ctx context.Context, appt model.Appointment, idempotencyKey string) (stored model.Appointment, replayed bool, err error)
	LookupIdempotencyKey(ctx context.Context, key string) (model.Appointment, bool, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	// Save replaces an existing appointment; ErrNotFound when id is unknown.
	Save(ctx context.Context, appt model.Appointment) error
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
	List(ctx context.Context) ([]model.Appointment, error)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateSlot)
}
