package workinghours

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Break struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Covers reports whether t falls in the half-open window [Start, End).
func (b Break) Covers(t Clock) bool {
	return b.Start <= t && t < b.End
}

// Overlaps reports whether [start, end) intersects the window.
func (b Break) Overlaps(start, end Clock) bool {
	return start < b.End && b.Start < end
}

// DaySchedule is a working-hours entry for one weekday. Start and End are
// ignored when IsActive is false. Breaks may be unsorted or overlapping.
type DaySchedule struct {
	IsActive bool    `json:"isActive"`
	Start    Clock   `json:"start"`
	End      Clock   `json:"end"`
	Breaks   []Break `json:"breaks,omitempty"`
}

func (d DaySchedule) InBreak(t Clock) bool {
	for _, b := range d.Breaks {
		if b.Covers(t) {
			return true
		}
	}
	return false
}

// Contains reports whether t is inside [Start, End) and outside every break.
func (d DaySchedule) Contains(t Clock) bool {
	if !d.IsActive {
		return false
	}
	if t < d.Start || t >= d.End {
		return false
	}
	return !d.InBreak(t)
}

// Fits reports whether the whole span [start, start+minutes) is inside working
// hours without touching a break.
func (d DaySchedule) Fits(start Clock, minutes int) bool {
	end := start.Add(minutes)
	if !d.IsActive || start < d.Start || end > d.End {
		return false
	}
	for _, b := range d.Breaks {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

func (d DaySchedule) Validate() error {
	if !d.IsActive {
		return nil
	}
	if d.Start < Midnight || d.End > EndOfDay || d.Start >= d.End {
		return fmt.Errorf("start %s must be before end %s", d.Start, d.End)
	}
	for _, b := range d.Breaks {
		if b.Start >= b.End {
			return fmt.Errorf("break %s-%s: start must be before end", b.Start, b.End)
		}
	}
	return nil
}

// WeeklySchedule maps canonical weekday keys to day entries. A missing day is closed.
type WeeklySchedule map[Weekday]DaySchedule

// Day returns the entry for the weekday of date.
func (w WeeklySchedule) Day(date time.Time) (DaySchedule, bool) {
	if w == nil {
		return DaySchedule{}, false
	}
	d, ok := w[WeekdayOf(date)]
	return d, ok
}

func (w WeeklySchedule) Validate() error {
	var errs []error
	for day, entry := range w {
		if !day.Valid() {
			errs = append(errs, fmt.Errorf("unknown weekday %q", day))
			continue
		}
		if err := entry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", day, err))
		}
	}
	return errors.Join(errs...)
}

// UnmarshalJSON normalizes keys ("Monday", "MON") onto the canonical names.
func (w *WeeklySchedule) UnmarshalJSON(data []byte) error {
	var raw map[string]DaySchedule
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(WeeklySchedule, len(raw))
	for k, v := range raw {
		day, ok := ParseWeekday(k)
		if !ok {
			return fmt.Errorf("unknown weekday %q", k)
		}
		out[day] = v
	}
	*w = out
	return nil
}

// IsOpenAt reports whether the schedule is open at the given clock on the calendar day of date.
func IsOpenAt(schedule WeeklySchedule, date time.Time, t Clock) bool {
	day, ok := schedule.Day(date)
	if !ok {
		return false
	}
	return day.Contains(t)
}

// Uniform builds a schedule with the same entry on each listed day and every other day closed.
func Uniform(entry DaySchedule, days ...Weekday) WeeklySchedule {
	w := make(WeeklySchedule, 7)
	for _, d := range Weekdays() {
		w[d] = DaySchedule{}
	}
	for _, d := range days {
		w[d] = entry
	}
	return w
}
