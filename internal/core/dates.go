package core

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical calendar-date string format used to key
// exceptions and group occurrences.
const DayKeyLayout = "2006-01-02"

// Day is a calendar date with no time-of-day component. All derived views
// operate on Days; wall-clock instants only enter the core as the injected
// "now" reference.
type Day struct {
	time.Time
}

// NewDay builds a Day from calendar components.
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an instant to its calendar date.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// ParseDay parses a YYYY-MM-DD date string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayKeyLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: date %q", ErrInvalidTemporalValue, s)
	}
	return DayOf(t), nil
}

// Key returns the canonical YYYY-MM-DD form.
func (d Day) Key() string {
	return d.Format(DayKeyLayout)
}

func (d Day) Next() Day {
	return d.AddDays(1)
}

func (d Day) Prev() Day {
	return d.AddDays(-1)
}

func (d Day) AddDays(n int) Day {
	return Day{Time: d.AddDate(0, 0, n)}
}

// ISOWeekLabel returns the ISO 8601 week label of the day, e.g. 2024-W05.
func (d Day) ISOWeekLabel() string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MarshalJSON renders a Day as its YYYY-MM-DD key.
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Key() + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("%w: day %s", ErrInvalidTemporalValue, string(b))
	}
	parsed, err := ParseDay(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseClock parses an HH:MM time-of-day string into minutes since
// midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidTemporalValue, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesOfDay returns the wall-clock minutes since midnight of an instant.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DayWindow is the single-day window containing now.
func DayWindow(now time.Time) (Day, Day) {
	d := DayOf(now)
	return d, d
}

// WeekWindow is the ISO week (Monday through Sunday) containing now.
func WeekWindow(now time.Time) (Day, Day) {
	d := DayOf(now)
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	start := d.AddDays(-offset)
	return start, start.AddDays(6)
}

// MonthWindow is the calendar month containing now.
func MonthWindow(now time.Time) (Day, Day) {
	y, m, _ := now.Date()
	start := NewDay(y, m, 1)
	return start, Day{Time: start.AddDate(0, 1, -1)}
}

// YearWindow is the calendar year containing now.
func YearWindow(now time.Time) (Day, Day) {
	y := now.Year()
	return NewDay(y, time.January, 1), NewDay(y, time.December, 31)
}

// WeekLabelsBetween lists the ISO week labels spanned by [from, to],
// inclusive, in chronological order.
func WeekLabelsBetween(from, to Day) []string {
	if to.Before(from.Time) {
		return nil
	}
	// Step Monday to Monday so every week in the span appears once.
	start, _ := WeekWindow(from.Time)
	var labels []string
	for cur := start; !cur.After(to.Time); cur = cur.AddDays(7) {
		labels = append(labels, cur.ISOWeekLabel())
	}
	return labels
}
