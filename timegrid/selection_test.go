package timegrid

import (
	"testing"
	"time"

	"hourgrid/internal/timeutil"
	"hourgrid/worklog"
)

func stateWithTasks(ids ...int64) State {
	registry := TaskRegistry{ByID: map[int64]worklog.Task{}}
	for _, id := range ids {
		registry = registry.With(worklog.Task{TaskID: id})
	}
	return State{Month: march(1), Tasks: registry}
}

func TestSelectLog_RowCoversBusinessDaysOfClosedInterval(t *testing.T) {
	t.Parallel()

	for a := 1; a <= 31; a++ {
		for b := 1; b <= 31; b++ {
			if a == b {
				continue
			}
			state := stateWithTasks(5)
			state.Selection = []Cell{{Day: march(a), TaskID: 5, Status: StatusSelected}}

			got := SelectLog(state, 5, march(b), SelectRow)

			want := map[string]bool{}
			for _, day := range timeutil.DaysBetween(march(a), march(b)) {
				if timeutil.IsBusinessDay(day) {
					want[worklog.DayKey(day)] = true
				}
			}
			if len(got.Selection) != len(want) {
				t.Fatalf("anchor %d target %d: expected %d cells, got %d", a, b, len(want), len(got.Selection))
			}
			for _, cell := range got.Selection {
				if cell.TaskID != 5 || !want[worklog.DayKey(cell.Day)] || cell.Status != StatusSelected {
					t.Fatalf("anchor %d target %d: unexpected cell %+v", a, b, cell)
				}
			}
		}
	}
}

func TestSelectLog_RowKeepsCellsOutsideInterval(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(5, 6)
	state.Selection = []Cell{
		{Day: march(1), TaskID: 5, Status: StatusSelected},
		{Day: march(6), TaskID: 6, Status: StatusSelected},
		{Day: march(11), TaskID: 5, Status: StatusSelected},
		{Day: march(5), TaskID: 5, Status: StatusSelected},
	}

	got := SelectLog(state, 5, march(7), SelectRow)

	for _, day := range []int{1, 11} {
		if !IsLogSelected(got, 5, march(day)) {
			t.Fatalf("expected task 5 day %d to stay selected", day)
		}
	}
	if !IsLogSelected(got, 6, march(6)) {
		t.Fatalf("expected other task selection to stay")
	}
	for _, day := range []int{5, 6, 7} {
		if !IsLogSelected(got, 5, march(day)) {
			t.Fatalf("expected day %d in row", day)
		}
	}
	if len(got.Selection) != 6 {
		t.Fatalf("expected 6 cells without duplicates, got %d", len(got.Selection))
	}
}

func TestSelectLog_RowOnOtherTaskLeavesSelection(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(5, 6)
	state.Selection = []Cell{{Day: march(4), TaskID: 5, Status: StatusSelected}}
	state.Mode = ModeFull

	got := SelectLog(state, 6, march(8), SelectRow)
	if len(got.Selection) != 1 || got.Selection[0].TaskID != 5 {
		t.Fatalf("expected selection unchanged, got %+v", got.Selection)
	}
	if got.Mode != ModeNone {
		t.Fatalf("expected mode none, got %s", got.Mode)
	}
}

func TestSelectLog_SingleReplacesAndResetsMode(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(5)
	state.Selection = []Cell{{Day: march(4), TaskID: 5, Status: StatusSelected}, {Day: march(5), TaskID: 5, Status: StatusSelected}}
	state.Mode = ModeFull

	got := SelectLog(state, 5, time.Date(2024, 3, 8, 15, 30, 0, 0, time.Local), SelectSingle)
	if len(got.Selection) != 1 || !got.Selection[0].Day.Equal(march(8)) {
		t.Fatalf("unexpected selection: %+v", got.Selection)
	}
	if got.Mode != ModeNone {
		t.Fatalf("expected mode none, got %s", got.Mode)
	}
	if len(state.Selection) != 2 {
		t.Fatalf("input state must not be modified")
	}
}

func TestSelectLog_ScatteredToggles(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(5)
	state.Selection = []Cell{{Day: march(4), TaskID: 5, Status: StatusSelected}}

	added := SelectLog(state, 5, march(6), SelectScattered)
	if len(added.Selection) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(added.Selection))
	}
	cursor, _ := added.Cursor()
	if !cursor.Day.Equal(march(6)) {
		t.Fatalf("expected cursor on newly added cell")
	}

	removed := SelectLog(added, 5, march(4), SelectScattered)
	if len(removed.Selection) != 1 || !removed.Selection[0].Day.Equal(march(6)) {
		t.Fatalf("expected day 4 toggled off, got %+v", removed.Selection)
	}
	if len(added.Selection) != 2 {
		t.Fatalf("previous snapshot must not be modified")
	}
}

func TestSelectLog_ImportActiveTogglesWithoutModifier(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(5, 6)
	state.Selection = []Cell{{Day: march(4), TaskID: 5, Status: StatusImported}}

	got := SelectLog(state, 6, march(5), SelectRow)
	if len(got.Selection) != 2 {
		t.Fatalf("expected toggle to add a cell, got %+v", got.Selection)
	}
	if status, _ := cellStatus(got, 5, march(4)); status != StatusImported {
		t.Fatalf("expected imported cell kept, got %s", status)
	}
}

func TestSelectLog_EmptySelectionAlwaysSelectsSingle(t *testing.T) {
	t.Parallel()

	got := SelectLog(stateWithTasks(5), 5, march(4), SelectRow)
	if len(got.Selection) != 1 {
		t.Fatalf("expected single cell, got %+v", got.Selection)
	}
}

func TestNavigateKeyPressed(t *testing.T) {
	t.Parallel()

	base := stateWithTasks(1, 2, 3)
	base.Selection = []Cell{
		{Day: march(10), TaskID: 1, Status: StatusSelected},
		{Day: march(15), TaskID: 2, Status: StatusSelected},
	}

	tests := []struct {
		name      string
		cursor    Cell
		direction Direction
		wantTask  int64
		wantDay   time.Time
	}{
		{name: "down", cursor: Cell{Day: march(15), TaskID: 2}, direction: DirectionDown, wantTask: 3, wantDay: march(15)},
		{name: "up", cursor: Cell{Day: march(15), TaskID: 2}, direction: DirectionUp, wantTask: 1, wantDay: march(15)},
		{name: "up at first task", cursor: Cell{Day: march(15), TaskID: 1}, direction: DirectionUp, wantTask: 1, wantDay: march(15)},
		{name: "down at last task", cursor: Cell{Day: march(15), TaskID: 3}, direction: DirectionDown, wantTask: 3, wantDay: march(15)},
		{name: "left", cursor: Cell{Day: march(15), TaskID: 2}, direction: DirectionLeft, wantTask: 2, wantDay: march(14)},
		{name: "right", cursor: Cell{Day: march(15), TaskID: 2}, direction: DirectionRight, wantTask: 2, wantDay: march(16)},
		{name: "left at month start", cursor: Cell{Day: march(1), TaskID: 2}, direction: DirectionLeft, wantTask: 2, wantDay: march(1)},
		{name: "right at month end", cursor: Cell{Day: march(31), TaskID: 2}, direction: DirectionRight, wantTask: 2, wantDay: march(31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := base
			tt.cursor.Status = StatusSelected
			state.Selection = []Cell{base.Selection[0], tt.cursor}

			got := NavigateKeyPressed(state, tt.direction)
			if len(got.Selection) != 1 {
				t.Fatalf("expected one cell, got %+v", got.Selection)
			}
			cell := got.Selection[0]
			if cell.TaskID != tt.wantTask || !cell.Day.Equal(tt.wantDay) || cell.Status != StatusSelected {
				t.Fatalf("unexpected cursor: %+v", cell)
			}
		})
	}
}

func TestNavigateKeyPressed_IgnoredWhileEntering(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(1, 2)
	state.Selection = []Cell{{Day: march(4), TaskID: 1, Status: StatusSelected}}
	state.Mode = ModeFull

	got := NavigateKeyPressed(state, DirectionDown)
	if got.Selection[0].TaskID != 1 {
		t.Fatalf("expected no movement while entering")
	}

	empty := NavigateKeyPressed(stateWithTasks(1), DirectionDown)
	if len(empty.Selection) != 0 {
		t.Fatalf("expected empty selection to stay empty")
	}
}

func TestNavigateKeyPressed_CursorOutsideRegistry(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(1, 2)
	state.Selection = []Cell{{Day: march(4), TaskID: 99, Status: StatusSelected}}

	down := NavigateKeyPressed(state, DirectionDown)
	if len(down.Selection) != 1 || down.Selection[0].TaskID != 1 || !down.Selection[0].Day.Equal(march(4)) {
		t.Fatalf("expected down to move to the first task, got %+v", down.Selection)
	}

	up := NavigateKeyPressed(state, DirectionUp)
	if len(up.Selection) != 1 || up.Selection[0].TaskID != 99 {
		t.Fatalf("expected up to keep the cursor, got %+v", up.Selection)
	}
}

func TestEnterAndEscapeKeyPressed(t *testing.T) {
	t.Parallel()

	empty := EnterKeyPressed(stateWithTasks(1))
	if empty.Mode != ModeNone {
		t.Fatalf("expected enter on empty selection to do nothing")
	}

	state := stateWithTasks(1)
	state.Selection = []Cell{{Day: march(4), TaskID: 1, Status: StatusSelected}}

	opened := EnterKeyPressed(state)
	if opened.Mode != ModeFull || opened.EditingValue != "0" {
		t.Fatalf("expected full mode with value 0, got %s %q", opened.Mode, opened.EditingValue)
	}

	closed := EnterKeyPressed(opened)
	if closed.Mode != ModeNone {
		t.Fatalf("expected enter to close the editor, got %s", closed.Mode)
	}

	escaped := EscapeKeyPressed(opened)
	if escaped.Mode != ModeNone || len(escaped.Selection) != 1 {
		t.Fatalf("expected escape to keep selection and reset mode")
	}
}

func TestEnterKeyPressed_ImportSessionEditsHoursOnly(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(1)
	state.Selection = []Cell{{Day: march(4), TaskID: 1, Status: StatusImported}}

	got := EnterKeyPressed(state)
	if got.Mode != ModeHours {
		t.Fatalf("expected hours mode during import, got %s", got.Mode)
	}
}

func TestAddNewTask(t *testing.T) {
	t.Parallel()

	state := stateWithTasks(1)
	got := AddNewTask(state, worklog.Task{TaskID: 9, Project: "P"})
	got = AddNewTask(got, worklog.Task{TaskID: 9, Project: "P2"})

	if len(got.Tasks.IDs) != 2 || got.Tasks.IDs[1] != 9 || got.Tasks.ByID[9].Project != "P2" {
		t.Fatalf("unexpected registry: %+v", got.Tasks)
	}
	if len(got.NewlyAdded) != 1 {
		t.Fatalf("expected task tracked once, got %v", got.NewlyAdded)
	}
	if state.Tasks.Has(9) {
		t.Fatalf("input registry must not be modified")
	}
}
