package timegrid

import (
	"slices"
	"time"

	"hourgrid/internal/timeutil"
	"hourgrid/worklog"
)

// SelectLog applies a click on the (taskID, day) cell.
func SelectLog(state State, taskID int64, day time.Time, mode SelectionMode) State {
	day = timeutil.StartOfDay(day)
	next := state
	next.Mode = ModeNone

	cursor, hasCursor := state.Cursor()
	switch {
	case mode == SelectSingle || !hasCursor:
		next.Selection = []Cell{{Day: day, TaskID: taskID, Status: StatusSelected}}
	case mode == SelectRow && cursor.TaskID == taskID:
		next.Selection = selectRow(state.Selection, taskID, cursor.Day, day)
	case mode == SelectScattered || HasImportedData(state):
		next.Selection = toggleCell(state.Selection, taskID, day)
	}
	return next
}

func selectRow(selection []Cell, taskID int64, anchor, target time.Time) []Cell {
	days := timeutil.BusinessDaysBetween(anchor, target)
	row := make([]Cell, 0, len(days))
	for _, day := range days {
		row = append(row, Cell{Day: day, TaskID: taskID, Status: StatusSelected})
	}

	first, last := timeutil.StartOfDay(anchor), timeutil.StartOfDay(target)
	if first.After(last) {
		first, last = last, first
	}
	kept := filterCells(selection, func(cell Cell) bool {
		if cell.TaskID != taskID {
			return true
		}
		return cell.Day.Before(first) || cell.Day.After(last)
	})
	return append(kept, row...)
}

func toggleCell(selection []Cell, taskID int64, day time.Time) []Cell {
	key := worklog.KeyOf(taskID, day)
	for i, cell := range selection {
		if cell.Key() == key {
			return slices.Delete(slices.Clone(selection), i, i+1)
		}
	}
	return append(slices.Clone(selection), Cell{Day: day, TaskID: taskID, Status: StatusSelected})
}

// NavigateKeyPressed moves the cursor and collapses the selection to it.
// It does nothing while a value is being entered.
func NavigateKeyPressed(state State, direction Direction) State {
	if state.Mode != ModeNone {
		return state
	}
	cursor, ok := state.Cursor()
	if !ok {
		return state
	}

	target := cursor
	switch direction {
	case DirectionUp, DirectionDown:
		// A cursor on a task outside the registry has index -1, so Down
		// lands on the first task.
		index := slices.Index(state.Tasks.IDs, cursor.TaskID)
		if direction == DirectionUp {
			index--
		} else {
			index++
		}
		if index >= 0 && index < len(state.Tasks.IDs) {
			target = Cell{Day: cursor.Day, TaskID: state.Tasks.IDs[index], Status: StatusSelected}
		}
	case DirectionLeft, DirectionRight:
		step := 1
		if direction == DirectionLeft {
			step = -1
		}
		day := cursor.Day.AddDate(0, 0, step)
		if timeutil.SameMonth(day, cursor.Day) {
			target = Cell{Day: day, TaskID: cursor.TaskID, Status: StatusSelected}
		}
	}

	next := state
	next.Selection = []Cell{target}
	return next
}

// EnterKeyPressed opens the editor for a non-empty selection or closes it.
// During an import session the editor only asks for hours.
func EnterKeyPressed(state State) State {
	if len(state.Selection) == 0 {
		return state
	}

	next := state
	if state.Mode != ModeNone {
		next.Mode = ModeNone
		return next
	}

	next.EditingValue = "0"
	if HasImportedData(state) {
		next.Mode = ModeHours
	} else {
		next.Mode = ModeFull
	}
	return next
}

// EscapeKeyPressed closes the editor and keeps the selection.
func EscapeKeyPressed(state State) State {
	next := state
	next.Mode = ModeNone
	return next
}

func UpdateEditingValue(state State, value string) State {
	next := state
	next.EditingValue = value
	return next
}

func ChangeDisplayWeekend(state State, value bool) State {
	next := state
	next.DisplayWeekend = value
	return next
}

// AddNewTask shows task in the grid before it has any hours.
func AddNewTask(state State, task worklog.Task) State {
	next := state
	next.Tasks = state.Tasks.With(task)
	if !slices.Contains(state.NewlyAdded, task.TaskID) {
		next.NewlyAdded = append(slices.Clone(state.NewlyAdded), task.TaskID)
	}
	return next
}
