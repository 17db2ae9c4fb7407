package availability

import (
	wh "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
)

// DefaultGranularity is the slot step in minutes.
const DefaultGranularity = 30

// GenerateCandidateSlots steps from the day's start in granularity-minute increments
// while before its end, dropping any start that falls inside a break. Only the start
// instant is checked: a slot may be offered even if a service would run into a break
// or past closing time.
func GenerateCandidateSlots(day wh.DaySchedule, granularity int) []wh.Clock {
	if !day.IsActive || granularity <= 0 || day.Start >= day.End {
		return nil
	}
	var slots []wh.Clock
	for t := day.Start; t < day.End; t = t.Add(granularity) {
		if day.InBreak(t) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

// GenerateFittingSlots is the strict variant: a slot is kept only when the whole
// [start, start+duration) span lies in working hours and clear of every break.
func GenerateFittingSlots(day wh.DaySchedule, granularity, duration int) []wh.Clock {
	if duration <= 0 {
		return GenerateCandidateSlots(day, granularity)
	}
	var slots []wh.Clock
	for _, t := range GenerateCandidateSlots(day, granularity) {
		if day.Fits(t, duration) {
			slots = append(slots, t)
		}
	}
	return slots
}
