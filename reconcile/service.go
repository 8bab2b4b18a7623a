package reconcile

import (
	"fmt"
	"sort"

	"hourgrid/internal/classify"
	"hourgrid/weboffice"
	"hourgrid/worklog"
)

// Defaults are applied to every entry materialized from an import.
type Defaults struct {
	IsWorkFromHome      bool
	WorkFromHomeStarted float64
	TypeOfWork          string
}

type Result struct {
	// Entries are the entries to merge into the store, one per cell.
	Entries []worklog.Entry
	// Tasks are the tasks that received at least one imported entry.
	Tasks     []worklog.Task
	Imported  int
	Unchanged int
	Ignored   int
}

// Merge compares externally tracked durations with the current entries and
// builds the entries an import would write. It never mutates existing.
func Merge(existing []worklog.Entry, workTimes []weboffice.WorkTime, defaults Defaults) (*Result, error) {
	result := &Result{}
	current := worklog.IndexByKey(existing)

	built := make(map[worklog.Key]worklog.Entry)
	order := make([]worklog.Key, 0, 64)
	tasks := make(map[int64]worklog.Task)
	taskOrder := make([]int64, 0, len(workTimes))

	for _, workTime := range workTimes {
		task := workTime.Task
		for _, timeEntry := range workTime.TimeEntries {
			day, err := weboffice.ParseISODay(timeEntry.EntryDay)
			if err != nil {
				return nil, fmt.Errorf("task %d: %w", task.TaskID, err)
			}

			key := worklog.KeyOf(task.TaskID, day)
			stored, found := current[key]
			switch classify.ClassifyWorkTime(stored, found, timeEntry.Duration) {
			case classify.Ignored:
				result.Ignored++
				continue
			case classify.Unchanged:
				result.Unchanged++
				continue
			case classify.Import:
			}

			if _, seen := built[key]; !seen {
				order = append(order, key)
			}
			built[key] = worklog.Entry{
				UID:                 stored.UID,
				TaskID:              task.TaskID,
				Date:                day,
				Hours:               timeEntry.Duration,
				Description:         task.Description,
				CustRefDescription:  task.CustRefDescription,
				ProjectName:         task.Project,
				TypeOfWork:          defaults.TypeOfWork,
				IsWorkFromHome:      defaults.IsWorkFromHome,
				WorkFromHomeStarted: defaults.WorkFromHomeStarted,
			}

			if _, ok := tasks[task.TaskID]; !ok {
				taskOrder = append(taskOrder, task.TaskID)
			}
			tasks[task.TaskID] = task
		}
	}

	result.Entries = make([]worklog.Entry, 0, len(order))
	for _, key := range order {
		result.Entries = append(result.Entries, built[key])
	}
	result.Imported = len(result.Entries)

	result.Tasks = make([]worklog.Task, 0, len(taskOrder))
	for _, taskID := range taskOrder {
		result.Tasks = append(result.Tasks, tasks[taskID])
	}

	return result, nil
}

// SortedDays returns the distinct days touched by entries in ascending order.
func SortedDays(entries []worklog.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	days := make([]string, 0, len(entries))
	for _, entry := range entries {
		day := worklog.DayKey(entry.Date)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}
