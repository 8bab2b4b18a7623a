package timegrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hourgrid/internal/timeutil"
	"hourgrid/storage"
	"hourgrid/worklog"
)

type monthData struct {
	entries     []worklog.Entry
	typesOfWork []worklog.TypeOfWork
	favorites   []worklog.Task
}

// LoadMonth replaces the grid with the data of month. A newer load
// supersedes a pending one: the pending fetch is cancelled, its results are
// discarded and it returns nil.
func (e *Engine) LoadMonth(ctx context.Context, month time.Time) error {
	month = timeutil.StartOfMonth(month)

	e.mu.Lock()
	if e.state.Staging != nil {
		e.mu.Unlock()
		return ErrImportInProgress
	}
	if e.cancelLoad != nil {
		e.cancelLoad()
	}
	e.token++
	token := e.token
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancelLoad = cancel
	publish := e.setLocked(loadingStarted(e.state, month, e.now()))
	e.mu.Unlock()
	publish()

	data, err := e.fetchMonth(loadCtx, month)

	e.mu.Lock()
	if token != e.token {
		e.mu.Unlock()
		e.logger.Debug("discarding superseded month load", "month", month.Format("2006-01"), "error", err)
		return nil
	}
	e.cancelLoad = nil

	if err != nil {
		next := e.state
		next.LoadingMonth = false
		if !errors.Is(err, context.Canceled) {
			next.LoadError = err.Error()
		}
		publish = e.setLocked(next)
		e.mu.Unlock()
		publish()
		return fmt.Errorf("load month %s: %w", month.Format("2006-01"), err)
	}

	next := monthLoaded(e.state, data, e.pinned)
	publish = e.setLocked(next)
	e.mu.Unlock()
	publish()

	e.cacheMonth(next)
	return nil
}

func (e *Engine) fetchMonth(ctx context.Context, month time.Time) (monthData, error) {
	start := timeutil.StartOfMonth(month)
	end := timeutil.EndOfMonth(month)

	var data monthData
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		entries, err := e.backend.FetchMonthLog(groupCtx, start, end)
		if err != nil {
			return fmt.Errorf("fetch month log: %w", err)
		}
		data.entries = entries
		return nil
	})
	group.Go(func() error {
		types, err := e.backend.FetchTypesOfWork(groupCtx)
		if err != nil {
			return fmt.Errorf("fetch types of work: %w", err)
		}
		data.typesOfWork = types
		return nil
	})
	group.Go(func() error {
		favorites, err := e.backend.FetchFavoriteTasks(groupCtx)
		if err != nil {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			e.logger.Warn("fetch favorite tasks failed", "error", err)
			return nil
		}
		data.favorites = favorites
		return nil
	})

	if err := group.Wait(); err != nil {
		return monthData{}, err
	}
	return data, nil
}

func (e *Engine) cacheMonth(state State) {
	if e.cache == nil {
		return
	}
	err := e.cache.SaveMonth(storage.MonthSnapshot{
		Month:       state.Month,
		Entries:     state.Entries,
		TypesOfWork: state.TypesOfWork,
		SavedAt:     e.now(),
	})
	if err != nil {
		e.logger.Warn("cache month failed", "month", state.Month.Format("2006-01"), "error", err)
	}
}

func (e *Engine) GoNextMonth(ctx context.Context) error {
	return e.shiftMonth(ctx, 1)
}

func (e *Engine) GoPreviousMonth(ctx context.Context) error {
	return e.shiftMonth(ctx, -1)
}

// Refresh reloads the visible month.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.shiftMonth(ctx, 0)
}

func (e *Engine) shiftMonth(ctx context.Context, months int) error {
	month := e.Snapshot().Month
	if month.IsZero() {
		return ErrNoMonth
	}
	return e.LoadMonth(ctx, month.AddDate(0, months, 0))
}

func loadingStarted(state State, month time.Time, now time.Time) State {
	return State{
		Month:          month,
		Tasks:          TaskRegistry{ByID: map[int64]worklog.Task{}},
		TypesOfWork:    state.TypesOfWork,
		Favorites:      state.Favorites,
		DisplayWeekend: state.DisplayWeekend,
		ImportMetadata: state.ImportMetadata,
		Mode:           ModeNone,
		LoadingMonth:   true,
		LastRefresh:    now,
	}
}

// monthLoaded publishes fetched data. Tasks are derived from entries with
// hours, followed by pinned tasks.
func monthLoaded(state State, data monthData, pinned []worklog.Task) State {
	tasks := make([]worklog.Task, 0, len(data.entries)+len(pinned))
	for _, entry := range data.entries {
		if entry.Hours <= 0 {
			continue
		}
		description := entry.CustRefDescription
		if description == "" {
			description = entry.Description
		}
		tasks = append(tasks, worklog.Task{
			TaskID:             entry.TaskID,
			Project:            entry.ProjectName,
			Description:        description,
			CustRefDescription: entry.CustRefDescription,
		})
	}

	registry := TaskRegistry{ByID: make(map[int64]worklog.Task, len(tasks)+len(pinned))}
	for _, task := range append(tasks, pinned...) {
		if registry.Has(task.TaskID) {
			continue
		}
		registry.ByID[task.TaskID] = task
		registry.IDs = append(registry.IDs, task.TaskID)
	}

	next := state
	next.Entries = data.entries
	next.TypesOfWork = data.typesOfWork
	next.Favorites = data.favorites
	next.Tasks = registry
	next.LoadingMonth = false
	next.LoadError = ""
	return next
}
