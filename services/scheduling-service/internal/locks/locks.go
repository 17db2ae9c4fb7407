// Package locks serializes writers that claim the same booking slot.
package locks

import (
	"context"
	"errors"
	"time"
)

var ErrLocked = errors.New("slot is locked by another booking")

// Release gives the lock back. Releasing an expired or stolen lock is a no-op.
type Release func(ctx context.Context) error

type Locker interface {
	// Acquire waits up to the locker's wait budget for key, then fails with ErrLocked.
	Acquire(ctx context.Context, key string) (Release, error)
}

// SlotKey names the lock for one practitioner slot. Practice-wide scheduling
// passes an empty staffID so every practitioner shares the key.
func SlotKey(staffID, date, start string) string {
	return "slot:" + staffID + "|" + date + "|" + start
}

// AppointmentKey names the lock held while one appointment is read and rewritten.
func AppointmentKey(id string) string {
	return "appt:" + id
}

const (
	defaultTTL   = 10 * time.Second
	defaultWait  = 2 * time.Second
	retryBackoff = 25 * time.Millisecond
)

// retry calls try until it succeeds, ctx ends or wait elapses.
func retry(ctx context.Context, wait time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLocked
		}
		timer := time.NewTimer(retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
