package availability

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	wh "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
)

type ConflictMode string

const (
	// ConflictExact blocks a slot only when an appointment starts at exactly that time.
	ConflictExact ConflictMode = "exact"
	// ConflictOverlap blocks a slot when [slot, slot+duration) intersects an appointment.
	ConflictOverlap ConflictMode = "overlap"
)

type ConflictScope string

const (
	ScopeStaff    ConflictScope = "staff"
	ScopePractice ConflictScope = "practice"
)

func ParseConflictMode(s string) (ConflictMode, error) {
	switch m := ConflictMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ConflictExact, ConflictOverlap:
		return m, nil
	case "":
		return ConflictExact, nil
	}
	return "", fmt.Errorf("unknown conflict mode %q", s)
}

func ParseConflictScope(s string) (ConflictScope, error) {
	switch sc := ConflictScope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeStaff, ScopePractice:
		return sc, nil
	case "":
		return ScopeStaff, nil
	}
	return "", fmt.Errorf("unknown conflict scope %q", s)
}

type Options struct {
	Mode  ConflictMode
	Scope ConflictScope
	// Duration is the span in minutes a new booking would occupy; overlap mode only.
	Duration int
	// IgnoreID skips one appointment, so a reschedule does not collide with itself.
	IgnoreID string
}

type interval struct {
	Start wh.Clock
	End   wh.Clock
	ID    string
}

// MarkAvailability turns candidate start times into slots, marking each one booked
// when a non-cancelled appointment on date conflicts with it. The blocking
// appointment's id is attached.
func MarkAvailability(candidates []wh.Clock, appts []model.Appointment, staffID, date string, opts Options) []model.TimeSlot {
	busy := busyIntervals(appts, staffID, date, opts)
	out := make([]model.TimeSlot, 0, len(candidates))
	for _, t := range candidates {
		slot := model.TimeSlot{Time: t.String(), Available: true}
		if id, ok := conflictAt(t, busy, opts); ok {
			slot.Available = false
			slot.AppointmentID = id
		}
		out = append(out, slot)
	}
	return out
}

// FindConflict reports the first appointment that would block a booking for staffID
// at start on date.
func FindConflict(appts []model.Appointment, staffID, date string, start wh.Clock, opts Options) (string, bool) {
	return conflictAt(start, busyIntervals(appts, staffID, date, opts), opts)
}

func busyIntervals(appts []model.Appointment, staffID, date string, opts Options) []interval {
	var busy []interval
	for _, a := range appts {
		if !a.Blocks() || a.Date != date || a.ID == opts.IgnoreID {
			continue
		}
		if opts.Scope != ScopePractice && a.PractitionerID != staffID {
			continue
		}
		start, err := wh.ParseClock(a.StartTime)
		if err != nil {
			continue
		}
		end, err := wh.ParseClock(a.EndTime)
		if err != nil || end <= start {
			end = start.Add(max(a.Duration, 1))
		}
		busy = append(busy, interval{Start: start, End: end, ID: a.ID})
	}
	return busy
}

func conflictAt(t wh.Clock, busy []interval, opts Options) (string, bool) {
	if opts.Mode == ConflictOverlap {
		return overlapsAny(t, t.Add(max(opts.Duration, 1)), busy)
	}
	for _, b := range busy {
		if b.Start == t {
			return b.ID, true
		}
	}
	return "", false
}

func overlapsAny(start, end wh.Clock, busy []interval) (string, bool) {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start < b.End && b.Start < end {
			return b.ID, true
		}
	}
	return "", false
}
