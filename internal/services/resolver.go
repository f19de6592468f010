package services

import (
	"goalpad/internal/core"
)

// Resolution is the effective state of one (goal, day) pair after folding
// the goal's exceptions for that day.
type Resolution struct {
	Occurrence core.Occurrence
	Deleted    bool
}

// Resolve computes the effective occurrence of a goal on a day. A delete
// exception suppresses the occurrence entirely and takes precedence over
// modify and complete. A modify exception shallow-merges its override onto
// the base fields. Completion state for recurring goals comes from the
// complete/uncomplete exception pair (uncomplete wins if both are somehow
// present); one-time goals use their own completed flag, irrespective of
// exceptions.
//
// Resolve is idempotent: repeated calls with unchanged exception data yield
// identical output.
func Resolve(g core.Goal, day core.Day) Resolution {
	key := day.Key()
	res := Resolution{
		Occurrence: core.Occurrence{
			GoalID:    g.ID,
			Day:       day,
			Title:     g.Title,
			Category:  g.Category,
			Priority:  g.Priority,
			StartTime: g.StartTime,
			EndTime:   g.EndTime,
		},
	}

	if g.HasException(key, core.ExceptionDelete) {
		res.Deleted = true
		return res
	}

	if mod := g.ExceptionFor(key, core.ExceptionModify); mod != nil && mod.Override != nil {
		applyOverride(&res.Occurrence, mod.Override)
	}

	if core.ParseRecurrence(string(g.Recurrence)).IsRecurring() {
		res.Occurrence.Completed = g.HasException(key, core.ExceptionComplete) &&
			!g.HasException(key, core.ExceptionUncomplete)
	} else {
		res.Occurrence.Completed = g.Completed
	}

	return res
}

// applyOverride merges the non-empty override fields onto the occurrence,
// field by field.
func applyOverride(occ *core.Occurrence, o *core.Override) {
	if o.Title != "" {
		occ.Title = o.Title
	}
	if o.Category != "" {
		occ.Category = o.Category
	}
	if o.Priority != "" {
		if p, err := core.ParsePriority(o.Priority); err == nil {
			occ.Priority = p
		}
	}
	if o.StartTime != "" {
		occ.StartTime = o.StartTime
	}
	if o.EndTime != "" {
		occ.EndTime = o.EndTime
	}
}

// visibleOccurrences expands the goal over [rangeStart, rangeEnd] and
// resolves each day, dropping deleted occurrences.
func visibleOccurrences(g core.Goal, rangeStart, rangeEnd core.Day) []core.Occurrence {
	var occs []core.Occurrence
	for _, day := range Expand(g, rangeStart, rangeEnd) {
		res := Resolve(g, day)
		if res.Deleted {
			continue
		}
		occs = append(occs, res.Occurrence)
	}
	return occs
}
