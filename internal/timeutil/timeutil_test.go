package timeutil

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	t.Parallel()

	input := time.Date(2026, 3, 1, 14, 37, 9, 123, time.Local)
	got := StartOfDay(input)

	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestSameDay(t *testing.T) {
	t.Parallel()

	a := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	b := time.Date(2026, 3, 1, 18, 30, 0, 0, time.Local)
	c := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	if !SameDay(a, b) {
		t.Fatalf("expected same day for %v and %v", a, b)
	}
	if SameDay(a, c) {
		t.Fatalf("expected different days for %v and %v", a, c)
	}
}

func TestEndOfMonth(t *testing.T) {
	t.Parallel()

	got := EndOfMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.Local))
	if got.Day() != 29 || got.Month() != time.February {
		t.Fatalf("expected 2024-02-29, got %v", got)
	}
}

func TestBusinessDaysBetween_SwapsEndpointsAndSkipsWeekend(t *testing.T) {
	t.Parallel()

	// 2024-03-08 is a Friday, 2024-03-11 a Monday.
	from := time.Date(2024, 3, 12, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, 3, 7, 0, 0, 0, 0, time.Local)

	got := BusinessDaysBetween(from, to)
	want := []int{7, 8, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("expected %d days, got %d (%v)", len(want), len(got), got)
	}
	for i, day := range got {
		if day.Day() != want[i] {
			t.Fatalf("day %d: expected %d, got %d", i, want[i], day.Day())
		}
	}
}

func TestMonthDays(t *testing.T) {
	t.Parallel()

	days := MonthDays(time.Date(2024, 4, 15, 0, 0, 0, 0, time.Local))
	if len(days) != 30 {
		t.Fatalf("expected 30 days in April, got %d", len(days))
	}
	if days[0].Day() != 1 || days[29].Day() != 30 {
		t.Fatalf("unexpected bounds: %v .. %v", days[0], days[29])
	}
}
