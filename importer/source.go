package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"hourgrid/weboffice"
	"hourgrid/worklog"
)

// Result summarizes a read of tracker files.
type Result struct {
	FilesProcessed int
	RowsRead       int
	RowsMapped     int
	RowsSkipped    int
	WorkTimes      []weboffice.WorkTime
}

// FileSource serves work times from tracker export files instead of the
// WebOffice work-times endpoint.
type FileSource struct {
	Paths  []string
	Format string
	Mapper Mapper
	Tasks  []worklog.Task
	Logger *slog.Logger
}

// FetchWorkTimes reads every file and keeps the days inside [start, end].
func (s *FileSource) FetchWorkTimes(ctx context.Context, start, end time.Time) ([]weboffice.WorkTime, error) {
	result, err := s.read(ctx, func(day time.Time) bool {
		key := worklog.DayKey(day)
		return key >= worklog.DayKey(start) && key <= worklog.DayKey(end)
	})
	if err != nil {
		return nil, err
	}
	return result.WorkTimes, nil
}

// Read returns every row of the files, aggregated per task and day.
func (s *FileSource) Read(ctx context.Context) (*Result, error) {
	return s.read(ctx, func(time.Time) bool { return true })
}

func (s *FileSource) read(ctx context.Context, keep func(time.Time) bool) (*Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mapper := s.Mapper
	if mapper == nil {
		mapper = &TrackerMapper{}
	}
	tasks := NewTaskIndex(s.Tasks)

	result := &Result{}
	var rows []Row
	for _, path := range s.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		format, err := InferFormat(path, s.Format)
		if err != nil {
			return nil, err
		}
		reader, err := ReaderForFormat(format)
		if err != nil {
			return nil, err
		}
		records, err := reader.Read(path)
		if err != nil {
			return nil, err
		}

		result.FilesProcessed++
		result.RowsRead += len(records)
		for _, record := range records {
			row, ok, err := mapper.Map(record, tasks)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if !ok || !keep(row.Day) {
				result.RowsSkipped++
				continue
			}
			result.RowsMapped++
			rows = append(rows, row)
		}
		logger.Debug("read tracker file", "path", path, "format", format, "mapper", mapper.Name(), "rows", len(records))
	}

	result.WorkTimes = Aggregate(rows)
	return result, nil
}

// Aggregate sums rows per task and day. Tasks keep the order of their first
// row and days are sorted.
func Aggregate(rows []Row) []weboffice.WorkTime {
	var order []int64
	tasks := make(map[int64]worklog.Task)
	totals := make(map[int64]map[string]float64)

	for _, row := range rows {
		id := row.Task.TaskID
		if _, seen := tasks[id]; !seen {
			order = append(order, id)
			tasks[id] = row.Task
			totals[id] = make(map[string]float64)
		}
		totals[id][worklog.DayKey(row.Day)] += row.Hours
	}

	out := make([]weboffice.WorkTime, 0, len(order))
	for _, id := range order {
		days := make([]string, 0, len(totals[id]))
		for day := range totals[id] {
			days = append(days, day)
		}
		sort.Strings(days)

		workTime := weboffice.WorkTime{Task: tasks[id], TimeEntries: make([]weboffice.TimeEntry, 0, len(days))}
		for _, day := range days {
			workTime.TimeEntries = append(workTime.TimeEntries, weboffice.TimeEntry{EntryDay: day, Duration: totals[id][day]})
		}
		out = append(out, workTime)
	}
	return out
}
