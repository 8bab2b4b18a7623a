package timegrid

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"hourgrid/internal/timeutil"
	"hourgrid/reconcile"
	"hourgrid/storage"
	"hourgrid/weboffice"
	"hourgrid/worklog"
)

type ImportReport struct {
	Imported  int
	Unchanged int
	Ignored   int
	NewTasks  int
}

// StartImport fetches tracked durations for the visible month and stages
// them as imported cells. The first import of a session snapshots the store
// so CancelImport can restore it.
func (e *Engine) StartImport(ctx context.Context) (ImportReport, error) {
	if e.workTimes == nil {
		return ImportReport{}, errors.New("no work time source configured")
	}

	e.mu.Lock()
	state := e.state
	token := e.token
	e.mu.Unlock()

	if state.Month.IsZero() {
		return ImportReport{}, ErrNoMonth
	}
	if state.LoadingMonth {
		return ImportReport{}, ErrMonthLoading
	}

	start, end, ok := importRange(state.Month, e.now())
	if !ok {
		return ImportReport{}, nil
	}

	workTimes, err := e.workTimes.FetchWorkTimes(ctx, start, end)
	if err != nil {
		return ImportReport{}, fmt.Errorf("fetch work times: %w", err)
	}

	e.mu.Lock()
	if token != e.token {
		e.mu.Unlock()
		e.logger.Debug("discarding import for superseded month", "month", state.Month.Format("2006-01"))
		return ImportReport{}, nil
	}
	next, report, err := mergeImport(e.state, workTimes, e.now())
	if err != nil {
		e.mu.Unlock()
		return ImportReport{}, err
	}
	publish := e.setLocked(next)
	e.mu.Unlock()
	publish()

	e.logger.Info("import staged", "imported", report.Imported, "unchanged", report.Unchanged, "ignored", report.Ignored, "new_tasks", report.NewTasks)
	e.journalImport(next)
	return report, nil
}

// importRange covers the visible month, clamped to the end of the current
// month. It reports false when the month lies entirely in the future.
func importRange(month, now time.Time) (time.Time, time.Time, bool) {
	start := timeutil.StartOfMonth(month)
	end := timeutil.EndOfMonth(month)
	if limit := timeutil.EndOfMonth(now); end.After(limit) {
		end = limit
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func mergeImport(state State, workTimes []weboffice.WorkTime, now time.Time) (State, ImportReport, error) {
	result, err := reconcile.Merge(state.Entries, workTimes, importDefaults(state))
	if err != nil {
		return state, ImportReport{}, fmt.Errorf("merge work times: %w", err)
	}

	next := state
	if state.Staging == nil {
		next.Staging = &StagingArea{Entries: slices.Clone(state.Entries), TakenAt: now}
	}

	cells := make([]Cell, 0, len(result.Entries))
	for _, entry := range result.Entries {
		cells = append(cells, Cell{Day: entry.Date, TaskID: entry.TaskID, Status: StatusImported})
	}
	next.Entries = worklog.ReplaceByKey(state.Entries, result.Entries)
	next.Selection = replaceCellsByKey(state.Selection, cells)

	newTasks := 0
	for _, task := range result.Tasks {
		if !state.Tasks.Has(task.TaskID) {
			newTasks++
		}
	}
	next.Tasks = state.Tasks.With(result.Tasks...)

	return next, ImportReport{
		Imported:  result.Imported,
		Unchanged: result.Unchanged,
		Ignored:   result.Ignored,
		NewTasks:  newTasks,
	}, nil
}

func importDefaults(state State) reconcile.Defaults {
	started := 0.0
	if state.ImportMetadata.WorkFromHomeStart != nil {
		started = *state.ImportMetadata.WorkFromHomeStart
	}
	return reconcile.Defaults{
		IsWorkFromHome:      state.ImportMetadata.IsWorkFromHome,
		WorkFromHomeStarted: started,
		TypeOfWork:          SelectedTypeOfWorkKey(state),
	}
}

// CancelImport restores the store from the staging snapshot and keeps only
// the manually selected cells.
func (e *Engine) CancelImport() error {
	e.mu.Lock()
	if e.state.Staging == nil {
		e.mu.Unlock()
		return ErrNoImport
	}
	publish := e.setLocked(cancelImport(e.state))
	e.mu.Unlock()
	publish()

	e.clearJournal()
	return nil
}

func cancelImport(state State) State {
	next := state
	next.Entries = slices.Clone(state.Staging.Entries)
	next.Staging = nil
	next.Selection = ManualSelection(state)
	next.Mode = ModeNone
	return next
}

// CommitImport persists every imported or updated cell one by one. The
// staging snapshot is cleared after the pass, also when some cells failed.
func (e *Engine) CommitImport(ctx context.Context) (SyncReport, error) {
	e.mu.Lock()
	state := e.state
	affected := ImportedSelection(state)
	if state.Staging == nil && len(affected) == 0 {
		e.mu.Unlock()
		return SyncReport{}, ErrNoImport
	}

	entries := make([]worklog.Entry, 0, len(affected))
	for _, cell := range affected {
		if entry, ok := worklog.Find(state.Entries, cell.Key()); ok {
			entries = append(entries, entry)
		}
	}

	keys := cellKeys(affected)
	next := state
	next.Selection = ManualSelection(state)
	next.Loading = addLoading(state.Loading, keys...)
	token := e.token
	publish := e.setLocked(next)
	e.mu.Unlock()
	publish()

	report := e.persist(ctx, token, entries)

	e.mu.Lock()
	if token == e.token {
		done := e.state
		done.Staging = nil
		done.Mode = ModeNone
		done.Loading = slices.DeleteFunc(slices.Clone(done.Loading), func(key worklog.Key) bool {
			return slices.Contains(keys, key)
		})
		publish = e.setLocked(done)
	} else {
		publish = func() {}
	}
	e.mu.Unlock()
	publish()

	e.clearJournal()
	return report, nil
}

// ResumeImport restores an import session journaled before a restart when it
// belongs to the visible month.
func (e *Engine) ResumeImport() (bool, error) {
	if e.journal == nil {
		return false, nil
	}
	session, ok, err := e.journal.LoadImportSession()
	if err != nil {
		return false, fmt.Errorf("load import session: %w", err)
	}
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	state := e.state
	if state.LoadingMonth || !timeutil.SameMonth(state.Month, session.Month) {
		e.mu.Unlock()
		return false, nil
	}
	if state.Staging != nil {
		e.mu.Unlock()
		return false, ErrImportInProgress
	}
	next := resumeImport(state, session)
	publish := e.setLocked(next)
	e.mu.Unlock()
	publish()
	return true, nil
}

func resumeImport(state State, session storage.ImportSession) State {
	entries := make([]worklog.Entry, 0, len(session.Staged))
	cells := make([]Cell, 0, len(session.Staged))
	tasks := make([]worklog.Task, 0, len(session.Staged))
	for _, staged := range session.Staged {
		entry := staged.Entry
		status := StatusImported
		if staged.Updated {
			status = StatusUpdated
		}
		entries = append(entries, entry)
		cells = append(cells, Cell{Day: entry.Date, TaskID: entry.TaskID, Status: status})
		if !state.Tasks.Has(entry.TaskID) {
			tasks = append(tasks, worklog.Task{
				TaskID:             entry.TaskID,
				Project:            entry.ProjectName,
				Description:        entry.Description,
				CustRefDescription: entry.CustRefDescription,
			})
		}
	}

	next := state
	next.Staging = &StagingArea{Entries: slices.Clone(session.Baseline), TakenAt: session.TakenAt}
	next.Entries = worklog.ReplaceByKey(state.Entries, entries)
	next.Selection = replaceCellsByKey(state.Selection, cells)
	next.Tasks = state.Tasks.With(tasks...)
	return next
}

func (e *Engine) journalImport(state State) {
	if e.journal == nil || state.Staging == nil {
		return
	}

	staged := make([]storage.StagedEntry, 0, len(state.Selection))
	for _, cell := range ImportedSelection(state) {
		entry, ok := worklog.Find(state.Entries, cell.Key())
		if !ok {
			continue
		}
		staged = append(staged, storage.StagedEntry{Entry: entry, Updated: cell.Status == StatusUpdated})
	}

	err := e.journal.SaveImportSession(storage.ImportSession{
		Month:    state.Month,
		TakenAt:  state.Staging.TakenAt,
		Baseline: state.Staging.Entries,
		Staged:   staged,
	})
	if err != nil {
		e.logger.Warn("journal import session failed", "error", err)
	}
}

func (e *Engine) clearJournal() {
	if e.journal == nil {
		return
	}
	if err := e.journal.ClearImportSession(); err != nil {
		e.logger.Warn("clear import session failed", "error", err)
	}
}
