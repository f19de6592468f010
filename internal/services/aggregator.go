package services

import (
	"time"

	"goalpad/internal/core"
)

// Period selects a progress window anchored at the reference instant.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// streakLookbackDays bounds the backward walk of the current-streak
// computation.
const streakLookbackDays = 365

const (
	MoodHappy   = "happy"
	MoodNeutral = "neutral"
	MoodSad     = "sad"
)

// weekdayOrder is the fixed enumeration order used for weekday stats and
// their tie-breaking.
var weekdayOrder = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type (
	// Progress is the completion ratio of a period window.
	Progress struct {
		Period    Period  `json:"period"`
		Total     int     `json:"total"`
		Completed int     `json:"completed"`
		Remaining int     `json:"remaining"`
		Ratio     float64 `json:"ratio"`
	}

	CategoryCount struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	CategoryBreakdown struct {
		Counts    []CategoryCount `json:"counts"`
		MostUsed  string          `json:"mostUsed"`
		LeastUsed string          `json:"leastUsed"`
	}

	PriorityStat struct {
		Name      string `json:"name"`
		Completed int    `json:"completed"`
		Total     int    `json:"total"`
	}

	WeekdayCount struct {
		Day       string `json:"day"`
		Completed int    `json:"completed"`
	}

	WeekdayStats struct {
		Counts []WeekdayCount `json:"counts"`
		Best   string         `json:"best"`
		Worst  string         `json:"worst"`
	}

	Streaks struct {
		Current int `json:"current"`
		Longest int `json:"longest"`
	}

	// WeekMood is one entry of the mood reflection timeline.
	WeekMood struct {
		Week      string  `json:"week"` // ISO label, e.g. 2024-W05
		Mood      string  `json:"mood"`
		Ratio     float64 `json:"ratio"`
		Total     int     `json:"total"`
		Completed int     `json:"completed"`
	}

	// DetailedStats bundles every derived statistic for one user's goal
	// set; it is also the payload of the persisted stats snapshot.
	DetailedStats struct {
		WeekProgress  Progress          `json:"weekProgress"`
		MonthProgress Progress          `json:"monthProgress"`
		YearProgress  Progress          `json:"yearProgress"`
		Categories    CategoryBreakdown `json:"categories"`
		Priorities    []PriorityStat    `json:"priorities"`
		Weekdays      WeekdayStats      `json:"weekdays"`
		Streaks       Streaks           `json:"streaks"`
		MoodTimeline  []WeekMood        `json:"moodTimeline"`
		MoodSummary   map[string]int    `json:"moodSummary"`
	}
)

// ParsePeriod maps a raw period string to a known window, defaulting to
// today.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodToday
	}
}

// PeriodWindow returns the inclusive day window of a period around now.
// Weeks are ISO weeks, starting Monday.
func PeriodWindow(p Period, now time.Time) (core.Day, core.Day) {
	switch p {
	case PeriodWeek:
		return core.WeekWindow(now)
	case PeriodMonth:
		return core.MonthWindow(now)
	case PeriodYear:
		return core.YearWindow(now)
	default:
		return core.DayWindow(now)
	}
}

// PeriodProgress computes the completed/total occurrence ratio over the
// period window. Deleted occurrences are excluded; an empty window yields a
// zero ratio, never an error.
func PeriodProgress(goals []core.Goal, now time.Time, p Period) Progress {
	start, end := PeriodWindow(p, now)
	prog := Progress{Period: p}
	for _, g := range goals {
		for _, occ := range visibleOccurrences(g, start, end) {
			prog.Total++
			if occ.Completed {
				prog.Completed++
			}
		}
	}
	prog.Remaining = prog.Total - prog.Completed
	if prog.Total > 0 {
		prog.Ratio = float64(prog.Completed) / float64(prog.Total)
	}
	return prog
}

// historyOccurrences returns the goal's visible occurrences from its
// creation through today. One-time goals always contribute their single
// occurrence, wherever the deadline falls.
func historyOccurrences(g core.Goal, today core.Day) []core.Occurrence {
	if core.ParseRecurrence(string(g.Recurrence)).IsRecurring() {
		return visibleOccurrences(g, core.DayOf(g.CreatedAt), today)
	}
	res := Resolve(g, core.DayOf(g.Deadline))
	if res.Deleted {
		return nil
	}
	return []core.Occurrence{res.Occurrence}
}

// Categories counts all occurrences per normalized category label and
// picks the most and least used. Labels are trimmed and title-cased so
// "work" and "Work " land in a single bucket; missing categories fall into
// "Uncategorized". Ties go to the first label encountered.
func Categories(goals []core.Goal, now time.Time) CategoryBreakdown {
	today := core.DayOf(now)
	counts := make(map[string]int)
	var order []string
	for _, g := range goals {
		label := core.NormalizeLabel(g.Category, "Uncategorized")
		n := len(historyOccurrences(g, today))
		if n == 0 {
			continue
		}
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label] += n
	}

	var breakdown CategoryBreakdown
	for _, label := range order {
		breakdown.Counts = append(breakdown.Counts, CategoryCount{Name: label, Count: counts[label]})
	}
	if len(breakdown.Counts) > 0 {
		most, least := breakdown.Counts[0], breakdown.Counts[0]
		for _, c := range breakdown.Counts[1:] {
			if c.Count > most.Count {
				most = c
			}
			if c.Count < least.Count {
				least = c
			}
		}
		breakdown.MostUsed = most.Name
		breakdown.LeastUsed = least.Name
	}
	return breakdown
}

// Priorities tallies completed/total occurrences per priority level. The
// four known levels are always present, in urgency order, even at 0/0;
// unknown values are normalized into their own display bucket and appended.
func Priorities(goals []core.Goal, now time.Time) []PriorityStat {
	today := core.DayOf(now)
	order := []string{"Urgent", "High", "Medium", "Low"}
	stats := make(map[string]*PriorityStat, len(order))
	for _, name := range order {
		stats[name] = &PriorityStat{Name: name}
	}

	for _, g := range goals {
		label := core.NormalizeLabel(string(g.Priority), "Low")
		st, ok := stats[label]
		if !ok {
			st = &PriorityStat{Name: label}
			stats[label] = st
			order = append(order, label)
		}
		for _, occ := range historyOccurrences(g, today) {
			st.Total++
			if occ.Completed {
				st.Completed++
			}
		}
	}

	out := make([]PriorityStat, 0, len(order))
	for _, name := range order {
		out = append(out, *stats[name])
	}
	return out
}

// Weekdays counts completed occurrences per weekday across all history and
// picks the best and worst days. Ties resolve to the earliest day in the
// fixed Mon..Sun order.
func Weekdays(goals []core.Goal, now time.Time) WeekdayStats {
	today := core.DayOf(now)
	counts := make(map[string]int, len(weekdayOrder))
	for _, name := range weekdayOrder {
		counts[name] = 0
	}
	for _, g := range goals {
		for _, occ := range historyOccurrences(g, today) {
			if occ.Completed {
				counts[occ.Day.Format("Mon")]++
			}
		}
	}

	stats := WeekdayStats{Best: weekdayOrder[0], Worst: weekdayOrder[0]}
	max, min := counts[weekdayOrder[0]], counts[weekdayOrder[0]]
	for _, name := range weekdayOrder {
		stats.Counts = append(stats.Counts, WeekdayCount{Day: name, Completed: counts[name]})
		if counts[name] > max {
			max = counts[name]
			stats.Best = name
		}
		if counts[name] < min {
			min = counts[name]
			stats.Worst = name
		}
	}
	return stats
}

// dayStatus reports whether any goal is scheduled on the day (excluding
// deleted occurrences) and whether every scheduled occurrence is completed.
func dayStatus(goals []core.Goal, day core.Day) (scheduled, allDone bool) {
	allDone = true
	for _, g := range goals {
		if !ScheduledOn(g, day) {
			continue
		}
		res := Resolve(g, day)
		if res.Deleted {
			continue
		}
		scheduled = true
		if !res.Occurrence.Completed {
			allDone = false
		}
	}
	if !scheduled {
		allDone = false
	}
	return scheduled, allDone
}

// StreakStats computes the current and longest completion streaks.
//
// The current streak walks backward from today over days that have at least
// one scheduled occurrence: days with no tasks between today and the most
// recent task day are skipped without breaking anything, but once counting
// has started a calendar gap ends the walk, as does a day with an unmet
// occurrence. The longest streak is the longest run of consecutive calendar
// dates among fully-completed days anywhere in history.
func StreakStats(goals []core.Goal, now time.Time) Streaks {
	if len(goals) == 0 {
		return Streaks{}
	}
	today := core.DayOf(now)

	var streaks Streaks
	started := false
	cur := today
	for i := 0; i < streakLookbackDays; i++ {
		scheduled, allDone := dayStatus(goals, cur)
		if !scheduled {
			if started {
				break
			}
			cur = cur.Prev()
			continue
		}
		if !allDone {
			break
		}
		started = true
		streaks.Current++
		cur = cur.Prev()
	}

	// Longest: scan full history for fully-completed days, then find the
	// longest run of consecutive dates.
	earliest := today
	for _, g := range goals {
		if d := core.DayOf(g.CreatedAt); d.Before(earliest.Time) {
			earliest = d
		}
		if d := core.DayOf(g.Deadline); d.Before(earliest.Time) {
			earliest = d
		}
	}
	run := 0
	for d := earliest; !d.After(today.Time); d = d.Next() {
		scheduled, allDone := dayStatus(goals, d)
		if !scheduled || !allDone {
			// Non-qualifying dates break consecutiveness, including days
			// with nothing scheduled.
			run = 0
			continue
		}
		run++
		if run > streaks.Longest {
			streaks.Longest = run
		}
	}
	return streaks
}

// moodFor maps a weekly completion ratio to a mood label. The thresholds
// are fixed.
func moodFor(ratio float64) string {
	switch {
	case ratio >= 0.8:
		return MoodHappy
	case ratio >= 0.4:
		return MoodNeutral
	default:
		return MoodSad
	}
}

// MoodTimeline computes the per-ISO-week mood reflection over the span
// covered by the goal set (earliest creation through latest deadline) and a
// summary of week counts per mood. Recurring occurrences are counted up to
// today; one-time goals land in their deadline's week.
func MoodTimeline(goals []core.Goal, now time.Time) ([]WeekMood, map[string]int) {
	if len(goals) == 0 {
		return nil, map[string]int{}
	}

	today := core.DayOf(now)
	minDay, maxDay := core.DayOf(goals[0].CreatedAt), core.DayOf(goals[0].Deadline)
	for _, g := range goals[1:] {
		if d := core.DayOf(g.CreatedAt); d.Before(minDay.Time) {
			minDay = d
		}
		if d := core.DayOf(g.Deadline); d.After(maxDay.Time) {
			maxDay = d
		}
	}

	labels := core.WeekLabelsBetween(minDay, maxDay)
	type bucket struct{ total, completed int }
	buckets := make(map[string]*bucket, len(labels))
	for _, l := range labels {
		buckets[l] = &bucket{}
	}

	for _, g := range goals {
		for _, occ := range historyOccurrences(g, today) {
			b, ok := buckets[occ.Day.ISOWeekLabel()]
			if !ok {
				continue
			}
			b.total++
			if occ.Completed {
				b.completed++
			}
		}
	}

	timeline := make([]WeekMood, 0, len(labels))
	summary := map[string]int{}
	for _, l := range labels {
		b := buckets[l]
		ratio := 0.0
		if b.total > 0 {
			ratio = float64(b.completed) / float64(b.total)
		}
		mood := moodFor(ratio)
		timeline = append(timeline, WeekMood{
			Week:      l,
			Mood:      mood,
			Ratio:     ratio,
			Total:     b.total,
			Completed: b.completed,
		})
		summary[mood]++
	}
	return timeline, summary
}

// Detailed computes the full statistics bundle for a goal set.
func Detailed(goals []core.Goal, now time.Time) DetailedStats {
	timeline, summary := MoodTimeline(goals, now)
	return DetailedStats{
		WeekProgress:  PeriodProgress(goals, now, PeriodWeek),
		MonthProgress: PeriodProgress(goals, now, PeriodMonth),
		YearProgress:  PeriodProgress(goals, now, PeriodYear),
		Categories:    Categories(goals, now),
		Priorities:    Priorities(goals, now),
		Weekdays:      Weekdays(goals, now),
		Streaks:       StreakStats(goals, now),
		MoodTimeline:  timeline,
		MoodSummary:   summary,
	}
}
