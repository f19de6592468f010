// Package services provides the scheduling and statistics logic built on
// top of the core goal model.
//
// This file implements the Strategy Pattern for recurrence matching. Each
// pattern (daily, weekly, monthly, yearly) has its own matcher that
// encapsulates the rule for deciding whether a goal anchored at some date
// recurs on a given day.

package services

import (
	"fmt"

	"goalpad/internal/core"
)

// OccurrenceMatcher is the strategy interface for recurrence patterns.
// Matchers are pure: the same (anchor, day) pair always yields the same
// answer.
type OccurrenceMatcher interface {
	// Matches reports whether a goal anchored at anchor is scheduled on day.
	Matches(anchor, day core.Day) bool
}

// DailyMatcher schedules a goal on every day.
type DailyMatcher struct{}

func (DailyMatcher) Matches(_, _ core.Day) bool { return true }

// WeeklyMatcher schedules a goal on days sharing the anchor's weekday.
type WeeklyMatcher struct{}

func (WeeklyMatcher) Matches(anchor, day core.Day) bool {
	return anchor.Weekday() == day.Weekday()
}

// MonthlyMatcher schedules a goal on days sharing the anchor's day of
// month. Months that do not contain the anchor day (an anchor on the 31st
// in February) simply never match: the month is skipped, not clamped to its
// last day.
type MonthlyMatcher struct{}

func (MonthlyMatcher) Matches(anchor, day core.Day) bool {
	return anchor.Day() == day.Day()
}

// YearlyMatcher schedules a goal on days sharing the anchor's month and day
// of month. As with monthly, a Feb 29 anchor skips non-leap years.
type YearlyMatcher struct{}

func (YearlyMatcher) Matches(anchor, day core.Day) bool {
	return anchor.Day() == day.Day() && anchor.Month() == day.Month()
}

// occurrenceMatchers maps recurrence patterns to their matchers.
var occurrenceMatchers = map[core.Recurrence]OccurrenceMatcher{
	core.Daily:   DailyMatcher{},
	core.Weekly:  WeeklyMatcher{},
	core.Monthly: MonthlyMatcher{},
	core.Yearly:  YearlyMatcher{},
}

// MatcherFor returns the matcher for a recurring pattern. One-time goals
// have no matcher; their single occurrence is handled by the expander
// directly.
func MatcherFor(r core.Recurrence) (OccurrenceMatcher, error) {
	m, ok := occurrenceMatchers[r]
	if !ok {
		return nil, fmt.Errorf("no occurrence matcher for recurrence %q", r)
	}
	return m, nil
}
