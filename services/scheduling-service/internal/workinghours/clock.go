package workinghours

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a local time of day in minutes since midnight.
// Valid values are 00:00 through 24:00; 24:00 is only meaningful as an exclusive end.
type Clock int

const (
	Midnight Clock = 0
	EndOfDay Clock = 24 * 60
)

// ParseClock parses "HH:MM" (a trailing ":SS" is accepted and ignored).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid clock %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock %q: bad minute", s)
	}
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("invalid clock %q: past end of day", s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Add returns c shifted by minutes. The result is not wrapped at midnight.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Sub returns c - o in minutes.
func (c Clock) Sub(o Clock) int {
	return int(c - o)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On places the clock on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c) * time.Minute)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar day as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
