package timegrid

import (
	"fmt"
	"slices"
	"time"

	"hourgrid/internal/timeutil"
	"hourgrid/worklog"
)

// HasImportedData reports whether any selected cell belongs to an import session.
func HasImportedData(state State) bool {
	return slices.ContainsFunc(state.Selection, func(cell Cell) bool {
		return cell.Status.FromImport()
	})
}

// ManualSelection returns the cells the user selected by hand.
func ManualSelection(state State) []Cell {
	return filterCells(state.Selection, func(cell Cell) bool {
		return cell.Status == StatusSelected
	})
}

// ImportedSelection returns the cells tagged by an import session.
func ImportedSelection(state State) []Cell {
	return filterCells(state.Selection, func(cell Cell) bool {
		return cell.Status.FromImport()
	})
}

func LogInfo(state State, taskID int64, day time.Time) (worklog.Entry, bool) {
	return worklog.Find(state.Entries, worklog.KeyOf(taskID, day))
}

func IsLogSelected(state State, taskID int64, day time.Time) bool {
	key := worklog.KeyOf(taskID, day)
	return slices.ContainsFunc(state.Selection, func(cell Cell) bool {
		return cell.Key() == key
	})
}

func IsLogLoading(state State, taskID int64, day time.Time) bool {
	return slices.Contains(state.Loading, worklog.KeyOf(taskID, day))
}

func TotalHoursForDay(state State, day time.Time) float64 {
	total := 0.0
	for _, entry := range state.Entries {
		if timeutil.SameDay(entry.Date, day) {
			total += entry.Hours
		}
	}
	return total
}

func TotalHoursForTask(state State, taskID int64) float64 {
	total := 0.0
	for _, entry := range state.Entries {
		if entry.TaskID == taskID {
			total += entry.Hours
		}
	}
	return total
}

func TotalForMonth(state State) float64 {
	total := 0.0
	for _, entry := range state.Entries {
		total += entry.Hours
	}
	return total
}

// DaysRange returns every day of the visible month.
func DaysRange(state State) []time.Time {
	if state.Month.IsZero() {
		return nil
	}
	return timeutil.MonthDays(state.Month)
}

// VisibleDays is DaysRange without weekends unless they are displayed.
func VisibleDays(state State) []time.Time {
	days := DaysRange(state)
	if state.DisplayWeekend {
		return days
	}
	return slices.DeleteFunc(days, func(day time.Time) bool {
		return !timeutil.IsBusinessDay(day)
	})
}

// IsGridReadOnly reports whether the visible month is not the current one.
func IsGridReadOnly(state State, now time.Time) bool {
	return !timeutil.SameMonth(state.Month, now)
}

// SelectedTypeOfWorkKey resolves the type of work chosen for imports.
func SelectedTypeOfWorkKey(state State) string {
	index := state.ImportMetadata.SelectedTypeOfWorkIndex
	if index == nil || *index < 0 || *index >= len(state.TypesOfWork) {
		return ""
	}
	return state.TypesOfWork[*index].Key
}

func HintMessage(state State, now time.Time) string {
	if state.LoadingMonth {
		return "Loading data. Please wait."
	}

	if n := len(state.Loading); n > 0 {
		if n < 5 {
			return "Data is saving. Please wait."
		}
		return fmt.Sprintf("%d entries are updating. This might take a while, so hold on!", n)
	}

	if state.Mode == ModeHours {
		return fmt.Sprintf("You are editing %d entries. Hit ENTER to submit or ESC to cancel. Use value 0 to delete the entry", len(state.Selection))
	}

	switch n := len(state.Selection); {
	case n == 1:
		return "Hit ENTER to edit. Or hold CTRL (or CMD) and click on other cells to select more"
	case n > 1:
		return fmt.Sprintf("%d days selected. Hit ENTER to edit or ESC to cancel", n)
	}

	if state.Month.Before(timeutil.StartOfMonth(now)) {
		return "You are not allowed to change data in the past, but you can look at it and be proud of your work!"
	}
	if state.Month.After(timeutil.EndOfMonth(now)) {
		return "You are not allowed to change data in the future."
	}
	return "Click on a cell to start logging your hours"
}

// Totals is the set of derived sums shown around the grid.
type Totals struct {
	ByDay  map[string]float64
	ByTask map[int64]float64
	Month  float64
}

func ComputeTotals(state State) Totals {
	totals := Totals{
		ByDay:  make(map[string]float64),
		ByTask: make(map[int64]float64),
	}
	for _, entry := range state.Entries {
		totals.ByDay[worklog.DayKey(entry.Date)] += entry.Hours
		totals.ByTask[entry.TaskID] += entry.Hours
		totals.Month += entry.Hours
	}
	return totals
}
