package services

import (
	"sort"
	"time"

	"goalpad/internal/core"
)

// ScheduleWindowDays is the default forward-looking window of the grouped
// schedule view: today plus the next seven days.
const ScheduleWindowDays = 8

// DayGroup is one date of the schedule view with its resolved occurrences.
type DayGroup struct {
	Day         core.Day          `json:"day"`
	Occurrences []core.Occurrence `json:"occurrences"`
}

// GroupByDate produces the schedule view: occurrences grouped per date over
// a window starting at today, dates ascending, occurrences within a date
// ordered by start time. Deleted occurrences are excluded and modify
// overrides applied. Occurrences on today whose end time has already passed
// are dropped; later days are untouched since their end times are still
// ahead of now.
func GroupByDate(goals []core.Goal, now time.Time, windowDays int) []DayGroup {
	if windowDays <= 0 {
		windowDays = ScheduleWindowDays
	}
	today := core.DayOf(now)
	nowMinutes := core.MinutesOfDay(now)

	var groups []DayGroup
	for i := 0; i < windowDays; i++ {
		day := today.AddDays(i)
		var occs []core.Occurrence
		for _, g := range goals {
			for _, occ := range visibleOccurrences(g, day, day) {
				if i == 0 {
					if end, err := core.ParseClock(occ.EndTime); err == nil && end <= nowMinutes {
						continue
					}
				}
				occs = append(occs, occ)
			}
		}
		if len(occs) == 0 {
			continue
		}
		sort.SliceStable(occs, func(a, b int) bool {
			return startMinutes(occs[a]) < startMinutes(occs[b])
		})
		groups = append(groups, DayGroup{Day: day, Occurrences: occs})
	}
	return groups
}

// startMinutes orders occurrences within a day; unparsable start times sort
// last.
func startMinutes(occ core.Occurrence) int {
	m, err := core.ParseClock(occ.StartTime)
	if err != nil {
		return 24 * 60
	}
	return m
}
