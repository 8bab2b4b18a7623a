package output

import (
	"math"
	"sort"
	"time"

	"hourgrid/internal/timeutil"
	"hourgrid/worklog"
)

// Grid is the task by day matrix of one month.
type Grid struct {
	Month     time.Time
	Days      []time.Time
	Rows      []GridRow
	DayTotals []float64
	Total     float64
}

type GridRow struct {
	Task  worklog.Task
	Hours []float64
	Total float64
}

// DaySummary aggregates all entries of one day.
type DaySummary struct {
	Date         string
	Hours        float64
	EntryCount   int
	WorkFromHome bool
	// WorkFromHomeStarted is the earliest start hour among work from home entries.
	WorkFromHomeStarted float64
}

// BuildGrid lays entries out in rows for tasks. Tasks that only appear in
// entries are appended in order of first appearance. Weekend columns are
// dropped unless includeWeekend is set; their hours still count in row totals.
func BuildGrid(month time.Time, tasks []worklog.Task, entries []worklog.Entry, includeWeekend bool) Grid {
	grid := Grid{Month: timeutil.StartOfMonth(month)}
	for _, day := range timeutil.MonthDays(month) {
		if includeWeekend || timeutil.IsBusinessDay(day) {
			grid.Days = append(grid.Days, day)
		}
	}

	column := make(map[string]int, len(grid.Days))
	for i, day := range grid.Days {
		column[worklog.DayKey(day)] = i
	}

	rowIndex := make(map[int64]int, len(tasks))
	addRow := func(task worklog.Task) int {
		if index, ok := rowIndex[task.TaskID]; ok {
			return index
		}
		rowIndex[task.TaskID] = len(grid.Rows)
		grid.Rows = append(grid.Rows, GridRow{Task: task, Hours: make([]float64, len(grid.Days))})
		return len(grid.Rows) - 1
	}
	for _, task := range tasks {
		addRow(task)
	}

	grid.DayTotals = make([]float64, len(grid.Days))
	for _, entry := range entries {
		if !timeutil.SameMonth(entry.Date, grid.Month) || entry.Hours == 0 {
			continue
		}
		index := addRow(worklog.Task{
			TaskID:             entry.TaskID,
			Project:            entry.ProjectName,
			Description:        entry.Description,
			CustRefDescription: entry.CustRefDescription,
		})
		row := &grid.Rows[index]
		row.Total += entry.Hours
		grid.Total += entry.Hours
		if col, ok := column[worklog.DayKey(entry.Date)]; ok {
			row.Hours[col] += entry.Hours
			grid.DayTotals[col] += entry.Hours
		}
	}

	for i := range grid.Rows {
		grid.Rows[i].Total = roundHours(grid.Rows[i].Total)
	}
	for i := range grid.DayTotals {
		grid.DayTotals[i] = roundHours(grid.DayTotals[i])
	}
	grid.Total = roundHours(grid.Total)
	return grid
}

func BuildDailySummaries(entries []worklog.Entry) []DaySummary {
	byDay := make(map[string]*DaySummary)
	for _, entry := range entries {
		if entry.Hours == 0 {
			continue
		}
		key := worklog.DayKey(entry.Date)
		summary, ok := byDay[key]
		if !ok {
			summary = &DaySummary{Date: key}
			byDay[key] = summary
		}
		summary.Hours += entry.Hours
		summary.EntryCount++
		if entry.IsWorkFromHome {
			if !summary.WorkFromHome || entry.WorkFromHomeStarted < summary.WorkFromHomeStarted {
				summary.WorkFromHomeStarted = entry.WorkFromHomeStarted
			}
			summary.WorkFromHome = true
		}
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, summary := range byDay {
		summary.Hours = roundHours(summary.Hours)
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func roundHours(value float64) float64 {
	return math.Round(value*100) / 100
}
