package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	minutesPerDay = 24 * 60
)

// Date is a calendar date with no time-of-day or zone attached.
// The zero value means "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string. Surrounding whitespace is an error,
// so exception dates match only when written exactly.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf takes the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday reports the day of week of d as a wall-clock date in loc.
func (d Date) Weekday(loc *time.Location) time.Weekday {
	if loc == nil {
		loc = time.UTC
	}
	// noon avoids DST transitions that happen around midnight
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc).Weekday()
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// DaysUntil counts calendar days from d to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

// ParseClock accepts "H:MM", "HH:MM" and the same with ":SS"; seconds are dropped.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// ClockOf builds a Clock from hours and minutes.
func ClockOf(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Valid reports whether c is inside a single day.
func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SlotKey is the natural key of a slot within one tenant.
type SlotKey struct {
	Date  Date
	Start Clock
	End   Clock
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s-%s", k.Date, k.Start, k.End)
}

// DesiredSlot is a slot the planner wants to exist.
type DesiredSlot struct {
	Date         Date    `json:"date"`
	Start        Clock   `json:"start_time"`
	End          Clock   `json:"end_time"`
	Capacity     float64 `json:"capacity"`
	ResourceUnit string  `json:"resource_unit"`
	Notes        string  `json:"notes"`
	Blackout     bool    `json:"blackout"`
}

func (s DesiredSlot) Key() SlotKey {
	return SlotKey{Date: s.Date, Start: s.Start, End: s.End}
}

// PersistedSlot is a stored slot row. Notes is nil when the column is NULL.
type PersistedSlot struct {
	ID           string  `json:"id"`
	TenantID     string  `json:"tenant_id"`
	Date         Date    `json:"date"`
	Start        Clock   `json:"start_time"`
	End          Clock   `json:"end_time"`
	Capacity     float64 `json:"capacity"`
	ResourceUnit string  `json:"resource_unit"`
	Notes        *string `json:"notes"`
	Blackout     bool    `json:"blackout"`
}

func (p PersistedSlot) Key() SlotKey {
	return SlotKey{Date: p.Date, Start: p.Start, End: p.End}
}

// NotesOrEmpty treats NULL notes as the empty string.
func (p PersistedSlot) NotesOrEmpty() string {
	if p.Notes == nil {
		return ""
	}
	return *p.Notes
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
