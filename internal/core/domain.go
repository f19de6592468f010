package core

import (
	"errors"
	"strings"
	"time"
)

const (
	OneTime Recurrence = "one-time"
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Yearly  Recurrence = "yearly"
)

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const (
	ExceptionDelete     ExceptionType = "delete"
	ExceptionModify     ExceptionType = "modify"
	ExceptionComplete   ExceptionType = "complete"
	ExceptionUncomplete ExceptionType = "uncomplete"
)

type (
	// Recurrence is the schedule pattern of a goal, anchored to its
	// deadline date.
	Recurrence string

	Priority string

	ExceptionType string

	// Override carries the partial field set of a modify exception.
	// Zero-valued fields keep the goal's base value.
	Override struct {
		Title     string `json:"title,omitempty"`
		Category  string `json:"category,omitempty"`
		Priority  string `json:"priority,omitempty"`
		Deadline  string `json:"deadline,omitempty"`
		StartTime string `json:"startTime,omitempty"`
		EndTime   string `json:"endTime,omitempty"`
	}

	// Exception is a persisted per-date override record for a recurring
	// goal. Exceptions are keyed by exact date string equality.
	Exception struct {
		Date     string        `json:"date"` // YYYY-MM-DD
		Type     ExceptionType `json:"type"`
		Override *Override     `json:"override,omitempty"`
	}

	Goal struct {
		ID         string      `json:"id"`
		UserID     string      `json:"userId"`
		Title      string      `json:"title"`
		Category   string      `json:"category"`
		Priority   Priority    `json:"priority"`
		Deadline   time.Time   `json:"deadline"`  // anchor date for recurring goals
		StartTime  string      `json:"startTime"` // HH:MM
		EndTime    string      `json:"endTime"`   // HH:MM
		Completed  bool        `json:"completed"` // one-time goals only
		Recurrence Recurrence  `json:"recurrence"`
		CreatedAt  time.Time   `json:"createdAt"`
		Exceptions []Exception `json:"exceptions"`
	}

	// Occurrence is one concrete scheduled instance of a goal on a
	// calendar day, with modify overrides already applied. Occurrences
	// are derived on demand and never persisted.
	Occurrence struct {
		GoalID    string   `json:"goalId"`
		Day       Day      `json:"day"`
		Title     string   `json:"title"`
		Category  string   `json:"category"`
		Priority  Priority `json:"priority"`
		StartTime string   `json:"startTime"`
		EndTime   string   `json:"endTime"`
		Completed bool     `json:"completed"`
	}
)

var (
	// ErrInvalidTemporalValue marks malformed calendar dates and HH:MM
	// clock times. Callers are expected to validate before the core
	// sees them.
	ErrInvalidTemporalValue = errors.New("invalid temporal value")

	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrZeroDeadline    = errors.New("deadline cannot be zero")
	ErrEndBeforeStart  = errors.New("end time must be after start time")
)

// ParseRecurrence maps a raw recurrence string to a known pattern.
// Unknown values fall back to one-time rather than failing.
func ParseRecurrence(s string) Recurrence {
	switch Recurrence(strings.TrimSpace(strings.ToLower(s))) {
	case Daily:
		return Daily
	case Weekly:
		return Weekly
	case Monthly:
		return Monthly
	case Yearly:
		return Yearly
	default:
		return OneTime
	}
}

// IsRecurring reports whether the pattern produces more than one occurrence.
func (r Recurrence) IsRecurring() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// ParsePriority validates a priority value. Priorities are a closed enum on
// input; display-side bucketing of loose values is NormalizeLabel's job.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.TrimSpace(strings.ToLower(s))); p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", ErrInvalidPriority
	}
}

// NormalizeLabel trims a display label and title-cases it: first letter
// upper, rest lower. The empty string maps to the given fallback bucket.
func NormalizeLabel(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if len(g.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if strings.TrimSpace(g.Category) == "" {
		return ErrEmptyCategory
	}
	if _, err := ParsePriority(string(g.Priority)); err != nil {
		return err
	}
	if g.Deadline.IsZero() {
		return ErrZeroDeadline
	}
	start, err := ParseClock(g.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(g.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return ErrEndBeforeStart
	}
	return nil
}

// ExceptionFor returns the first exception of the given type recorded for
// the day, or nil.
func (g Goal) ExceptionFor(day string, typ ExceptionType) *Exception {
	for i := range g.Exceptions {
		if g.Exceptions[i].Date == day && g.Exceptions[i].Type == typ {
			return &g.Exceptions[i]
		}
	}
	return nil
}

// HasException reports whether an exception of the given type exists for
// the day.
func (g Goal) HasException(day string, typ ExceptionType) bool {
	return g.ExceptionFor(day, typ) != nil
}
