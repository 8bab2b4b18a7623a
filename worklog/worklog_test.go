package worklog

import (
	"testing"
	"time"
)

func day(d int, hour int) time.Time {
	return time.Date(2024, 3, d, hour, 0, 0, 0, time.Local)
}

func TestKeyOf_IgnoresClock(t *testing.T) {
	t.Parallel()

	if KeyOf(5, day(4, 0)) != KeyOf(5, day(4, 17)) {
		t.Fatalf("expected keys for the same day to match")
	}
	if KeyOf(5, day(4, 0)) == KeyOf(6, day(4, 0)) {
		t.Fatalf("expected different tasks to produce different keys")
	}
	if got := (Entry{TaskID: 5, Date: day(4, 9)}).Key().Day; got != "2024-03-04" {
		t.Fatalf("unexpected day key %q", got)
	}
}

func TestReplaceByKey(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{UID: "a", TaskID: 1, Date: day(4, 0), Hours: 1},
		{UID: "b", TaskID: 2, Date: day(4, 0), Hours: 2},
	}
	got := ReplaceByKey(entries, []Entry{{UID: "c", TaskID: 1, Date: day(4, 12), Hours: 5}})

	if len(got) != 2 || got[0].UID != "b" || got[1].UID != "c" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if entries[0].UID != "a" {
		t.Fatalf("input must not be modified")
	}
}

func TestFindIndexAndRemove(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{UID: "a", TaskID: 1, Date: day(4, 0)},
		{UID: "b", TaskID: 1, Date: day(5, 0)},
		{UID: "c", TaskID: 1, Date: day(4, 0)},
	}

	if found, ok := Find(entries, KeyOf(1, day(5, 0))); !ok || found.UID != "b" {
		t.Fatalf("unexpected find result: %+v %v", found, ok)
	}
	if _, ok := Find(entries, KeyOf(9, day(5, 0))); ok {
		t.Fatalf("expected missing key")
	}

	index := IndexByKey(entries)
	if len(index) != 2 || index[KeyOf(1, day(4, 0))].UID != "c" {
		t.Fatalf("expected later entry to win, got %+v", index)
	}

	remaining := RemoveKey(entries, KeyOf(1, day(4, 0)))
	if len(remaining) != 1 || remaining[0].UID != "b" {
		t.Fatalf("unexpected remaining entries: %+v", remaining)
	}
}
