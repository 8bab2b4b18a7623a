package timegrid

import (
	"context"
	"fmt"
	"time"

	"hourgrid/internal/timeutil"
	"hourgrid/submitter"
	"hourgrid/worklog"
)

const serverErrorTitle = "Error from server"

// HoursInput is the value typed into the editor for the selected cells.
type HoursInput struct {
	TypeOfWork          string
	Hours               float64
	Description         string
	IsWorkFromHome      bool
	WorkFromHomeStarted float64
}

// SyncReport counts per-cell results of one persist pass.
type SyncReport struct {
	Submitted int
	Saved     int
	Failed    int
	Staged    int
}

// SubmitHours writes in to every manually selected cell. Without an import
// session the cells are persisted one by one; during an import session they
// are only staged locally and tagged as updated.
func (e *Engine) SubmitHours(ctx context.Context, in HoursInput) SyncReport {
	e.mu.Lock()
	state := e.state
	manual := ManualSelection(state)
	if len(manual) == 0 {
		e.mu.Unlock()
		return SyncReport{}
	}
	entries := buildEntries(state, manual, in)

	if HasImportedData(state) {
		next := stageEdits(state, manual, entries)
		publish := e.setLocked(next)
		e.mu.Unlock()
		publish()
		e.journalImport(next)
		return SyncReport{Staged: len(entries)}
	}

	token := e.token
	publish := e.setLocked(beginPlainSync(state, entries))
	e.mu.Unlock()
	publish()

	return e.persist(ctx, token, entries)
}

// SetWorkFromHomeForDay flips the work-from-home flag of every entry of day
// that differs from value.
func (e *Engine) SetWorkFromHomeForDay(ctx context.Context, day time.Time, value bool) SyncReport {
	e.mu.Lock()
	state := e.state
	entries := make([]worklog.Entry, 0, 8)
	for _, entry := range state.Entries {
		if !timeutil.SameDay(entry.Date, day) || entry.IsWorkFromHome == value {
			continue
		}
		updated := entry
		updated.IsWorkFromHome = value
		entries = append(entries, updated)
	}
	if len(entries) == 0 {
		e.mu.Unlock()
		return SyncReport{}
	}

	next := state
	next.Loading = addLoading(state.Loading, entryKeys(entries)...)
	token := e.token
	publish := e.setLocked(next)
	e.mu.Unlock()
	publish()

	return e.persist(ctx, token, entries)
}

// persist upserts entries through the submitter and reconciles each cell as
// its result arrives. Results are dropped from the store when a month load
// started in the meantime.
func (e *Engine) persist(ctx context.Context, token uint64, entries []worklog.Entry) SyncReport {
	report := SyncReport{Submitted: len(entries)}

	e.submitter.Submit(ctx, entries, func(outcome submitter.Outcome) {
		if outcome.Succeeded() {
			report.Saved++
		} else {
			report.Failed++
			e.notifier.Notify(
				serverErrorTitle,
				outcome.Err.Error(),
				fmt.Sprintf("TaskId: %d, Date: %s", outcome.Entry.TaskID, worklog.DayKey(outcome.Entry.Date)),
			)
		}

		e.mu.Lock()
		if token != e.token {
			e.mu.Unlock()
			return
		}
		publish := e.setLocked(applyOutcome(e.state, outcome))
		e.mu.Unlock()
		publish()
	})

	e.logger.Info("entries persisted", "submitted", report.Submitted, "saved", report.Saved, "failed", report.Failed, "strategy", string(e.submitter.Strategy()))
	return report
}

// buildEntries creates one entry per cell, carrying the UID of the stored
// entry at the same key.
func buildEntries(state State, cells []Cell, in HoursInput) []worklog.Entry {
	entries := make([]worklog.Entry, 0, len(cells))
	for _, cell := range cells {
		existing, _ := worklog.Find(state.Entries, cell.Key())
		task := state.Tasks.ByID[cell.TaskID]

		projectName := task.Project
		if projectName == "" {
			projectName = existing.ProjectName
		}
		custRef := task.CustRefDescription
		if custRef == "" {
			custRef = existing.CustRefDescription
		}

		entries = append(entries, worklog.Entry{
			UID:                 existing.UID,
			TaskID:              cell.TaskID,
			Date:                cell.Day,
			Hours:               in.Hours,
			Description:         in.Description,
			CustRefDescription:  custRef,
			ProjectName:         projectName,
			TypeOfWork:          in.TypeOfWork,
			IsWorkFromHome:      in.IsWorkFromHome,
			WorkFromHomeStarted: in.WorkFromHomeStarted,
		})
	}
	return entries
}

// beginPlainSync marks the cells as loading, collapses the selection to the
// cursor and applies the typed values optimistically.
func beginPlainSync(state State, entries []worklog.Entry) State {
	next := state
	next.Loading = addLoading(state.Loading, entryKeys(entries)...)
	if cursor, ok := state.Cursor(); ok {
		next.Selection = []Cell{cursor}
	}
	next.Mode = ModeNone
	next.Entries = worklog.ReplaceByKey(state.Entries, entries)
	return next
}

// stageEdits tags the manual cells as updated and writes the entries to the
// store only.
func stageEdits(state State, manual []Cell, entries []worklog.Entry) State {
	updated := make([]Cell, 0, len(manual))
	for _, cell := range manual {
		updated = append(updated, Cell{Day: cell.Day, TaskID: cell.TaskID, Status: StatusUpdated})
	}

	next := state
	next.Mode = ModeHours
	next.Selection = replaceCellsByKey(state.Selection, updated)
	next.Entries = worklog.ReplaceByKey(state.Entries, entries)
	return next
}

// applyOutcome reconciles one persisted cell. A saved entry replaces the
// stored one and is dropped when its hours are zero; a failed cell keeps the
// local value.
func applyOutcome(state State, outcome submitter.Outcome) State {
	key := outcome.Entry.Key()
	next := state
	next.Loading = removeLoading(state.Loading, key)
	if !outcome.Succeeded() {
		return next
	}

	saved := outcome.Saved
	entries := worklog.RemoveKey(state.Entries, key)
	if saved.Key() != key {
		entries = worklog.RemoveKey(entries, saved.Key())
	}
	if saved.Hours != 0 {
		entries = append(entries, saved)
	}
	next.Entries = entries
	return next
}

func entryKeys(entries []worklog.Entry) []worklog.Key {
	keys := make([]worklog.Key, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key())
	}
	return keys
}
