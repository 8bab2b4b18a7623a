package timegrid

import (
	"context"
	"fmt"
	"slices"

	"hourgrid/worklog"
)

// AddTaskToFavorites marks the task as favorite right away and rolls the
// change back when the backend rejects it.
func (e *Engine) AddTaskToFavorites(ctx context.Context, taskID int64) error {
	e.mu.Lock()
	task, ok := e.state.Tasks.ByID[taskID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("task %d is not in the grid", taskID)
	}
	publish := e.setLocked(withFavorite(e.state, task))
	e.mu.Unlock()
	publish()

	if err := e.backend.AddFavoriteTask(ctx, taskID); err != nil {
		e.update(func(s State) State { return withoutFavorite(s, taskID) })
		return fmt.Errorf("add favorite task %d: %w", taskID, err)
	}
	return nil
}

// RemoveTaskFromFavorites is the inverse of AddTaskToFavorites.
func (e *Engine) RemoveTaskFromFavorites(ctx context.Context, taskID int64) error {
	e.mu.Lock()
	index := slices.IndexFunc(e.state.Favorites, func(t worklog.Task) bool { return t.TaskID == taskID })
	if index < 0 {
		e.mu.Unlock()
		return nil
	}
	removed := e.state.Favorites[index]
	publish := e.setLocked(withoutFavorite(e.state, taskID))
	e.mu.Unlock()
	publish()

	if err := e.backend.RemoveFavoriteTask(ctx, taskID); err != nil {
		e.update(func(s State) State { return withFavorite(s, removed) })
		return fmt.Errorf("remove favorite task %d: %w", taskID, err)
	}
	return nil
}

func withFavorite(state State, task worklog.Task) State {
	next := state
	favorites := slices.DeleteFunc(slices.Clone(state.Favorites), func(t worklog.Task) bool {
		return t.TaskID == task.TaskID
	})
	next.Favorites = append(favorites, task)
	return next
}

func withoutFavorite(state State, taskID int64) State {
	next := state
	next.Favorites = slices.DeleteFunc(slices.Clone(state.Favorites), func(t worklog.Task) bool {
		return t.TaskID == taskID
	})
	return next
}
