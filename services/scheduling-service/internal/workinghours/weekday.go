package workinghours

import (
	"strings"
	"time"
)

// Weekday is the canonical schedule key. Values are fixed English lowercase names
// so lookups never depend on the host locale.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// indexed by time.Weekday
var byTimeWeekday = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Weekdays lists the seven keys Monday first.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// WeekdayOf returns the schedule key for the calendar day of date.
func WeekdayOf(date time.Time) Weekday {
	return byTimeWeekday[date.Weekday()]
}

// ParseWeekday matches full names and three-letter abbreviations, case-insensitively.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	for _, d := range byTimeWeekday {
		if s == string(d) || (len(s) == 3 && strings.HasPrefix(string(d), s)) {
			return d, true
		}
	}
	return "", false
}

// Valid reports whether d is one of the seven canonical keys.
func (d Weekday) Valid() bool {
	for _, k := range byTimeWeekday {
		if d == k {
			return true
		}
	}
	return false
}
