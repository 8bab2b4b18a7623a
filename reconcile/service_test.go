package reconcile

import (
	"testing"
	"time"

	"hourgrid/weboffice"
	"hourgrid/worklog"
)

func mustDay(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		t.Fatalf("parse day %q: %v", value, err)
	}
	return parsed
}

func TestMerge_CarriesUIDAndAppliesDefaults(t *testing.T) {
	t.Parallel()

	existing := []worklog.Entry{
		{UID: "u1", TaskID: 5, Date: mustDay(t, "2024-03-04"), Hours: 4, TypeOfWork: "OLD"},
	}
	workTimes := []weboffice.WorkTime{
		{
			Task: worklog.Task{TaskID: 5, Project: "P", Description: "D", CustRefDescription: "C"},
			TimeEntries: []weboffice.TimeEntry{
				{EntryDay: "2024-03-04", Duration: 6},
			},
		},
	}

	result, err := Merge(existing, workTimes, Defaults{IsWorkFromHome: true, WorkFromHomeStarted: 8, TypeOfWork: "DEV"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}

	got := result.Entries[0]
	if got.UID != "u1" || got.Hours != 6 {
		t.Fatalf("unexpected merged entry: %+v", got)
	}
	if got.TypeOfWork != "DEV" || !got.IsWorkFromHome || got.WorkFromHomeStarted != 8 {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.ProjectName != "P" || got.Description != "D" || got.CustRefDescription != "C" {
		t.Fatalf("task metadata not applied: %+v", got)
	}
	if existing[0].Hours != 4 {
		t.Fatalf("existing entries must not be mutated")
	}
}

func TestMerge_SkipsUnchangedAndIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	existing := []worklog.Entry{
		{UID: "u1", TaskID: 5, Date: mustDay(t, "2024-03-04"), Hours: 4},
		{UID: "u2", TaskID: 5, Date: mustDay(t, "2024-03-05"), Hours: 3},
	}
	workTimes := []weboffice.WorkTime{
		{
			Task: worklog.Task{TaskID: 5, Project: "P"},
			TimeEntries: []weboffice.TimeEntry{
				{EntryDay: "2024-03-04", Duration: 4},
				{EntryDay: "2024-03-05", Duration: 0},
				{EntryDay: "2024-03-06", Duration: -2},
			},
		},
		{
			Task:        worklog.Task{TaskID: 7, Project: "Q"},
			TimeEntries: []weboffice.TimeEntry{{EntryDay: "2024-03-06", Duration: 0}},
		},
	}

	result, err := Merge(existing, workTimes, Defaults{})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Fatalf("expected no entries, got %+v", result.Entries)
	}
	if len(result.Tasks) != 0 {
		t.Fatalf("expected no tasks, got %+v", result.Tasks)
	}
	if result.Unchanged != 1 || result.Ignored != 3 {
		t.Fatalf("unexpected counters: unchanged=%d ignored=%d", result.Unchanged, result.Ignored)
	}
}

func TestMerge_AddsTasksOnlyWhenImported(t *testing.T) {
	t.Parallel()

	workTimes := []weboffice.WorkTime{
		{
			Task:        worklog.Task{TaskID: 8, Project: "New"},
			TimeEntries: []weboffice.TimeEntry{{EntryDay: "2024-03-07T00:00:00", Duration: 1.5}},
		},
	}

	result, err := Merge(nil, workTimes, Defaults{})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Tasks) != 1 || result.Tasks[0].TaskID != 8 {
		t.Fatalf("expected task 8, got %+v", result.Tasks)
	}
	if result.Entries[0].UID != "" {
		t.Fatalf("expected empty uid for new entry")
	}
}

func TestMerge_DuplicateRecordsKeepOneEntryPerCell(t *testing.T) {
	t.Parallel()

	workTimes := []weboffice.WorkTime{
		{
			Task: worklog.Task{TaskID: 8},
			TimeEntries: []weboffice.TimeEntry{
				{EntryDay: "2024-03-07", Duration: 1},
				{EntryDay: "2024-03-07", Duration: 2},
			},
		},
	}

	result, err := Merge(nil, workTimes, Defaults{})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Hours != 2 {
		t.Fatalf("expected a single entry with the last duration, got %+v", result.Entries)
	}
}

func TestMerge_RejectsInvalidDay(t *testing.T) {
	t.Parallel()

	workTimes := []weboffice.WorkTime{
		{Task: worklog.Task{TaskID: 1}, TimeEntries: []weboffice.TimeEntry{{EntryDay: "07.03.2024", Duration: 1}}},
	}
	if _, err := Merge(nil, workTimes, Defaults{}); err == nil {
		t.Fatalf("expected error for invalid day")
	}
}
