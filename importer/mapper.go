package importer

import (
	"fmt"
	"strings"
	"time"

	"hourgrid/worklog"
)

// Row is one tracked duration for a task on a day.
type Row struct {
	Task  worklog.Task
	Day   time.Time
	Hours float64
}

type Mapper interface {
	Name() string
	// Map returns ok=false for rows that carry no time for a known task.
	Map(record Record, tasks TaskIndex) (Row, bool, error)
}

func SupportedMapperNames() []string {
	return []string{"tracker", "atwork"}
}

func MapperByName(name string) (Mapper, error) {
	switch normalizeHeader(name) {
	case "", "tracker":
		return &TrackerMapper{}, nil
	case "atwork":
		return &ATWorkMapper{}, nil
	default:
		return nil, fmt.Errorf("unsupported mapper: %s", name)
	}
}

// TaskIndex resolves rows without a task id through the configured tasks.
type TaskIndex struct {
	byID      map[int64]worklog.Task
	byProject map[string]worklog.Task
}

func NewTaskIndex(tasks []worklog.Task) TaskIndex {
	index := TaskIndex{
		byID:      make(map[int64]worklog.Task, len(tasks)),
		byProject: make(map[string]worklog.Task, len(tasks)),
	}
	for _, task := range tasks {
		index.byID[task.TaskID] = task
		for _, name := range []string{task.Project, task.Description, task.CustRefDescription} {
			key := normalizeHeader(name)
			if key == "" {
				continue
			}
			if _, taken := index.byProject[key]; !taken {
				index.byProject[key] = task
			}
		}
	}
	return index
}

// Resolve returns the configured task matching the first non-empty name.
func (i TaskIndex) Resolve(names ...string) (worklog.Task, bool) {
	for _, name := range names {
		key := normalizeHeader(name)
		if key == "" {
			continue
		}
		if task, ok := i.byProject[key]; ok {
			return task, true
		}
	}
	return worklog.Task{}, false
}

// TrackerMapper reads generic exports with a task id, a date and either a
// duration in hours or start and end times.
type TrackerMapper struct{}

func (m *TrackerMapper) Name() string {
	return "tracker"
}

func (m *TrackerMapper) Map(record Record, tasks TaskIndex) (Row, bool, error) {
	taskID, err := parseTaskID(record.Get("taskid", "task_id", "task", "aufgabeid"))
	if err != nil {
		return Row{}, false, fmt.Errorf("row %d: %w", record.RowNumber, err)
	}

	task := worklog.Task{
		TaskID:             taskID,
		Project:            record.Get("project", "projekt", "projectname"),
		Description:        record.Get("description", "beschreibung", "taskdescription"),
		CustRefDescription: record.Get("custref", "custrefdescription", "customerreference"),
	}
	if task.TaskID == 0 {
		resolved, ok := tasks.Resolve(task.Project, task.Description)
		if !ok {
			return Row{}, false, nil
		}
		task = resolved
	} else if known, ok := tasks.byID[task.TaskID]; ok {
		task = mergeTask(known, task)
	}

	day, hours, err := dayAndHours(record, []string{"date", "datum", "day", "entryday"}, []string{"hours", "duration", "stunden", "dauer"}, []string{"start", "startdatetime", "von"}, []string{"end", "enddatetime", "bis"})
	if err != nil {
		return Row{}, false, fmt.Errorf("row %d: %w", record.RowNumber, err)
	}
	if hours <= 0 {
		return Row{}, false, nil
	}
	return Row{Task: task, Day: day, Hours: hours}, true, nil
}

// ATWorkMapper maps atwork rows. The export has no task ids, so the
// Projekt and Aufgabe columns are resolved through the configured tasks.
type ATWorkMapper struct{}

func (m *ATWorkMapper) Name() string {
	return "atwork"
}

func (m *ATWorkMapper) Map(record Record, tasks TaskIndex) (Row, bool, error) {
	task, ok := tasks.Resolve(record.Get("Aufgabe", "task"), record.Get("Projekt", "project"), record.Get("Kunde", "customer"))
	if !ok {
		return Row{}, false, nil
	}

	day, hours, err := dayAndHours(record, nil, []string{"Dauer", "duration"}, []string{"Beginn", "start"}, []string{"Ende", "end"})
	if err != nil {
		return Row{}, false, fmt.Errorf("row %d: %w", record.RowNumber, err)
	}
	if hours <= 0 {
		return Row{}, false, nil
	}
	return Row{Task: task, Day: day, Hours: hours}, true, nil
}

// dayAndHours prefers explicit date and duration columns and falls back to
// start and end times.
func dayAndHours(record Record, dayKeys, hourKeys, startKeys, endKeys []string) (time.Time, float64, error) {
	hours, err := parseHours(record.Get(hourKeys...))
	if err != nil {
		return time.Time{}, 0, err
	}

	var start, end time.Time
	if raw := record.Get(startKeys...); raw != "" {
		if start, err = parseDateTime(raw); err != nil {
			return time.Time{}, 0, fmt.Errorf("parse start: %w", err)
		}
	}
	if raw := record.Get(endKeys...); raw != "" {
		if end, err = parseDateTime(raw); err != nil {
			return time.Time{}, 0, fmt.Errorf("parse end: %w", err)
		}
	}

	var day time.Time
	if raw := record.Get(dayKeys...); len(dayKeys) > 0 && raw != "" {
		if day, err = parseDay(raw); err != nil {
			return time.Time{}, 0, err
		}
	} else if !start.IsZero() {
		day = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local)
	} else {
		return time.Time{}, 0, fmt.Errorf("missing date")
	}

	if hours == 0 && !start.IsZero() && !end.IsZero() {
		if !end.After(start) {
			return time.Time{}, 0, fmt.Errorf("end must be after start")
		}
		hours = end.Sub(start).Hours()
	}
	return day, hours, nil
}

func mergeTask(known, row worklog.Task) worklog.Task {
	out := known
	if strings.TrimSpace(out.Project) == "" {
		out.Project = row.Project
	}
	if strings.TrimSpace(out.Description) == "" {
		out.Description = row.Description
	}
	if strings.TrimSpace(out.CustRefDescription) == "" {
		out.CustRefDescription = row.CustRefDescription
	}
	return out
}
