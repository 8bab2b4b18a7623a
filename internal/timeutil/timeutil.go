package timeutil

import "time"

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func StartOfMonth(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, value.Location())
}

func EndOfMonth(value time.Time) time.Time {
	return StartOfMonth(value).AddDate(0, 1, -1)
}

// IsBusinessDay reports whether value falls on Monday to Friday.
func IsBusinessDay(value time.Time) bool {
	weekday := value.Weekday()
	return weekday != time.Saturday && weekday != time.Sunday
}

// DaysBetween returns every calendar day in the closed interval between a and
// b. The endpoints are swapped when a is after b.
func DaysBetween(a, b time.Time) []time.Time {
	start := StartOfDay(a)
	end := StartOfDay(b)
	if start.After(end) {
		start, end = end, start
	}

	days := make([]time.Time, 0, 31)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// BusinessDaysBetween is DaysBetween filtered to business days.
func BusinessDaysBetween(a, b time.Time) []time.Time {
	all := DaysBetween(a, b)
	out := make([]time.Time, 0, len(all))
	for _, day := range all {
		if IsBusinessDay(day) {
			out = append(out, day)
		}
	}
	return out
}

// MonthDays returns all days of the month containing value.
func MonthDays(value time.Time) []time.Time {
	return DaysBetween(StartOfMonth(value), EndOfMonth(value))
}
