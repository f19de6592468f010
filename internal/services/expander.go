package services

import (
	"goalpad/internal/core"
)

// Expand produces the calendar days within [rangeStart, rangeEnd] on which
// the goal is scheduled. It is a pure function of its inputs: calling it
// again with the same goal and range yields the same days.
//
// One-time goals contribute at most one day, the date component of their
// deadline. Recurring goals contribute every in-range day matching their
// pattern against the anchor date, never earlier than the goal's creation
// date. Unknown recurrence values are treated as one-time.
func Expand(g core.Goal, rangeStart, rangeEnd core.Day) []core.Day {
	if rangeEnd.Before(rangeStart.Time) {
		return nil
	}

	anchor := core.DayOf(g.Deadline)
	rec := core.ParseRecurrence(string(g.Recurrence))
	if !rec.IsRecurring() {
		if anchor.Before(rangeStart.Time) || anchor.After(rangeEnd.Time) {
			return nil
		}
		return []core.Day{anchor}
	}

	// No occurrences before the goal existed.
	if created := core.DayOf(g.CreatedAt); created.After(rangeStart.Time) {
		rangeStart = created
	}

	matcher, err := MatcherFor(rec)
	if err != nil {
		// ParseRecurrence already closed the pattern set.
		return nil
	}

	var days []core.Day
	for cur := rangeStart; !cur.After(rangeEnd.Time); cur = cur.Next() {
		if matcher.Matches(anchor, cur) {
			days = append(days, cur)
		}
	}
	return days
}

// ScheduledOn reports whether the goal has an occurrence on the given day,
// ignoring exceptions.
func ScheduledOn(g core.Goal, day core.Day) bool {
	return len(Expand(g, day, day)) > 0
}
