package services

import (
	"testing"
	"time"

	"goalpad/internal/core"
)

func TestGroupByDateWindow(t *testing.T) {
	now := time.Date(2024, 6, 24, 8, 0, 0, 0, time.UTC)

	daily := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	weekly := recurringGoal(core.Weekly, "2024-06-26", "2024-06-24") // Wednesdays
	weekly.ID = "g2"
	weekly.Title = "Weekly review"

	groups := GroupByDate([]core.Goal{daily, weekly}, now, ScheduleWindowDays)
	if len(groups) != 8 {
		t.Fatalf("expected 8 day groups, got %d", len(groups))
	}
	if groups[0].Day.Key() != "2024-06-24" || groups[7].Day.Key() != "2024-07-01" {
		t.Fatalf("window bounds: %s .. %s", groups[0].Day.Key(), groups[7].Day.Key())
	}

	// Wednesday carries both goals
	for _, grp := range groups {
		if grp.Day.Key() == "2024-06-26" && len(grp.Occurrences) != 2 {
			t.Fatalf("wednesday: %+v", grp.Occurrences)
		}
	}
}

func TestGroupByDateDropsPassedToday(t *testing.T) {
	// 11:00: the 09:00-10:00 occurrence today is already over
	now := time.Date(2024, 6, 24, 11, 0, 0, 0, time.UTC)

	g := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	groups := GroupByDate([]core.Goal{g}, now, ScheduleWindowDays)

	if len(groups) != 7 {
		t.Fatalf("expected 7 groups (today filtered out), got %d", len(groups))
	}
	if groups[0].Day.Key() != "2024-06-25" {
		t.Fatalf("first group: %s", groups[0].Day.Key())
	}
}

func TestGroupByDateKeepsFutureDaysUnfiltered(t *testing.T) {
	now := time.Date(2024, 6, 24, 23, 30, 0, 0, time.UTC)

	g := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	groups := GroupByDate([]core.Goal{g}, now, 3)

	// Today is gone, tomorrow and the day after stay despite the late hour
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestGroupByDateSortsByStartTime(t *testing.T) {
	now := time.Date(2024, 6, 24, 6, 0, 0, 0, time.UTC)

	late := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	late.StartTime, late.EndTime = "15:00", "16:00"
	early := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	early.ID = "g2"
	early.StartTime, early.EndTime = "07:00", "08:00"

	groups := GroupByDate([]core.Goal{late, early}, now, 1)
	if len(groups) != 1 {
		t.Fatalf("groups: %d", len(groups))
	}
	occs := groups[0].Occurrences
	if occs[0].StartTime != "07:00" || occs[1].StartTime != "15:00" {
		t.Fatalf("order: %s then %s", occs[0].StartTime, occs[1].StartTime)
	}
}

func TestGroupByDateExcludesDeleted(t *testing.T) {
	now := time.Date(2024, 6, 24, 6, 0, 0, 0, time.UTC)

	g := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	remove(&g, "2024-06-25")

	groups := GroupByDate([]core.Goal{g}, now, 3)
	for _, grp := range groups {
		if grp.Day.Key() == "2024-06-25" {
			t.Fatalf("deleted day must be omitted entirely")
		}
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestGroupByDateAppliesOverrides(t *testing.T) {
	now := time.Date(2024, 6, 24, 6, 0, 0, 0, time.UTC)

	g := recurringGoal(core.Daily, "2024-06-24", "2024-06-24")
	g.Exceptions = []core.Exception{
		{Date: "2024-06-25", Type: core.ExceptionModify, Override: &core.Override{Title: "Rescheduled"}},
	}

	groups := GroupByDate([]core.Goal{g}, now, 2)
	for _, grp := range groups {
		if grp.Day.Key() == "2024-06-25" && grp.Occurrences[0].Title != "Rescheduled" {
			t.Fatalf("override not applied: %+v", grp.Occurrences[0])
		}
	}
}
