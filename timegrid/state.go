package timegrid

import (
	"fmt"
	"strings"
	"time"

	"hourgrid/worklog"
)

// Status tags a selected cell. The zero value is invalid so a forgotten
// assignment never reads as a plain selection.
type Status int

const (
	StatusSelected Status = iota + 1
	StatusImported
	StatusUpdated
)

func (s Status) String() string {
	switch s {
	case StatusSelected:
		return "selected"
	case StatusImported:
		return "imported"
	case StatusUpdated:
		return "updated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FromImport reports whether the cell belongs to a staged import session.
func (s Status) FromImport() bool {
	switch s {
	case StatusImported, StatusUpdated:
		return true
	case StatusSelected:
		return false
	default:
		return false
	}
}

// Cell is one selected (task, day) coordinate of the grid.
type Cell struct {
	Day    time.Time
	TaskID int64
	Status Status
}

func (c Cell) Key() worklog.Key {
	return worklog.KeyOf(c.TaskID, c.Day)
}

type EnteringMode int

const (
	ModeNone EnteringMode = iota
	ModeHours
	ModeFull
)

func (m EnteringMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeHours:
		return "hours"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type SelectionMode int

const (
	SelectSingle SelectionMode = iota
	SelectRow
	SelectScattered
)

func ParseSelectionMode(value string) (SelectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "single":
		return SelectSingle, nil
	case "row":
		return SelectRow, nil
	case "scattered":
		return SelectScattered, nil
	default:
		return SelectSingle, fmt.Errorf("unsupported selection mode: %s (supported: single, row, scattered)", value)
	}
}

type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	case "left":
		return DirectionLeft, nil
	case "right":
		return DirectionRight, nil
	default:
		return DirectionUp, fmt.Errorf("unsupported direction: %s (supported: up, down, left, right)", value)
	}
}

// ImportMetadata holds the defaults applied to imported entries.
type ImportMetadata struct {
	IsWorkFromHome          bool
	WorkFromHomeStart       *float64
	SelectedTypeOfWorkIndex *int
}

// StagingArea is the rollback snapshot of the store taken when an import
// session starts.
type StagingArea struct {
	Entries []worklog.Entry
	TakenAt time.Time
}

// TaskRegistry lists the tasks shown in the grid. IDs keeps display order.
type TaskRegistry struct {
	ByID map[int64]worklog.Task
	IDs  []int64
}

func (r TaskRegistry) Has(taskID int64) bool {
	_, ok := r.ByID[taskID]
	return ok
}

// With returns a copy of the registry with tasks added or replaced.
func (r TaskRegistry) With(tasks ...worklog.Task) TaskRegistry {
	out := TaskRegistry{
		ByID: make(map[int64]worklog.Task, len(r.ByID)+len(tasks)),
		IDs:  append(make([]int64, 0, len(r.IDs)+len(tasks)), r.IDs...),
	}
	for id, task := range r.ByID {
		out.ByID[id] = task
	}
	for _, task := range tasks {
		if _, ok := out.ByID[task.TaskID]; !ok {
			out.IDs = append(out.IDs, task.TaskID)
		}
		out.ByID[task.TaskID] = task
	}
	return out
}

// State is one immutable snapshot of the grid. Reducers never modify the
// slices or maps of a snapshot they receive; they allocate new ones.
type State struct {
	Month          time.Time
	Entries        []worklog.Entry
	Tasks          TaskRegistry
	NewlyAdded     []int64
	Selection      []Cell
	Loading        []worklog.Key
	Mode           EnteringMode
	EditingValue   string
	Staging        *StagingArea
	TypesOfWork    []worklog.TypeOfWork
	Favorites      []worklog.Task
	DisplayWeekend bool
	ImportMetadata ImportMetadata
	LoadingMonth   bool
	LoadError      string
	LastRefresh    time.Time
}

// Cursor returns the most recently selected cell.
func (s State) Cursor() (Cell, bool) {
	if len(s.Selection) == 0 {
		return Cell{}, false
	}
	return s.Selection[len(s.Selection)-1], true
}

func (s State) ImportActive() bool {
	return s.Staging != nil
}

func replaceCellsByKey(cells, replacements []Cell) []Cell {
	drop := make(map[worklog.Key]struct{}, len(replacements))
	for _, cell := range replacements {
		drop[cell.Key()] = struct{}{}
	}

	out := make([]Cell, 0, len(cells)+len(replacements))
	for _, cell := range cells {
		if _, ok := drop[cell.Key()]; ok {
			continue
		}
		out = append(out, cell)
	}
	return append(out, replacements...)
}

func filterCells(cells []Cell, keep func(Cell) bool) []Cell {
	out := make([]Cell, 0, len(cells))
	for _, cell := range cells {
		if keep(cell) {
			out = append(out, cell)
		}
	}
	return out
}

func addLoading(loading []worklog.Key, keys ...worklog.Key) []worklog.Key {
	seen := make(map[worklog.Key]struct{}, len(loading)+len(keys))
	out := make([]worklog.Key, 0, len(loading)+len(keys))
	for _, key := range append(append([]worklog.Key(nil), loading...), keys...) {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func removeLoading(loading []worklog.Key, key worklog.Key) []worklog.Key {
	out := make([]worklog.Key, 0, len(loading))
	for _, current := range loading {
		if current != key {
			out = append(out, current)
		}
	}
	return out
}

func cellKeys(cells []Cell) []worklog.Key {
	keys := make([]worklog.Key, 0, len(cells))
	for _, cell := range cells {
		keys = append(keys, cell.Key())
	}
	return keys
}
