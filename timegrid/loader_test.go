package timegrid

import (
	"context"
	"errors"
	"testing"
	"time"

	"hourgrid/submitter"
	"hourgrid/worklog"
)

func april(d int) time.Time {
	return time.Date(2024, 4, d, 0, 0, 0, 0, time.Local)
}

func TestLoadMonth_BuildsTaskRegistry(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		monthLog: func(context.Context, time.Time, time.Time) ([]worklog.Entry, error) {
			return []worklog.Entry{
				{UID: "a", TaskID: 5, Date: march(4), Hours: 2, ProjectName: "P5", Description: "plain", CustRefDescription: "REF-5"},
				{UID: "b", TaskID: 6, Date: march(4), Hours: 1, ProjectName: "P6", Description: "only description"},
				{UID: "c", TaskID: 7, Date: march(5), Hours: 0, ProjectName: "P7"},
				{UID: "d", TaskID: 5, Date: march(6), Hours: 3, ProjectName: "P5"},
			}, nil
		},
		types:     []worklog.TypeOfWork{{ID: "1", Key: "DEV"}},
		favorites: []worklog.Task{{TaskID: 6}},
	}
	cache := &fakeCache{}
	engine, err := New(Options{
		Backend:     backend,
		Cache:       cache,
		PinnedTasks: []worklog.Task{{TaskID: 42, Project: "Pinned"}, {TaskID: 5, Project: "dup"}},
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if err := engine.LoadMonth(context.Background(), march(20)); err != nil {
		t.Fatalf("load month: %v", err)
	}

	state := engine.Snapshot()
	if !state.Month.Equal(march(1)) || state.LoadingMonth {
		t.Fatalf("unexpected month state: %v loading=%v", state.Month, state.LoadingMonth)
	}
	wantIDs := []int64{5, 6, 42}
	if len(state.Tasks.IDs) != len(wantIDs) {
		t.Fatalf("unexpected task ids: %v", state.Tasks.IDs)
	}
	for i, id := range wantIDs {
		if state.Tasks.IDs[i] != id {
			t.Fatalf("unexpected task ids: %v", state.Tasks.IDs)
		}
	}
	if state.Tasks.ByID[5].Description != "REF-5" || state.Tasks.ByID[6].Description != "only description" {
		t.Fatalf("unexpected task descriptions: %+v", state.Tasks.ByID)
	}
	if state.Tasks.ByID[5].Project != "P5" {
		t.Fatalf("expected entry-derived task to win over pinned duplicate")
	}
	if len(state.Entries) != 4 || len(state.TypesOfWork) != 1 || len(state.Favorites) != 1 {
		t.Fatalf("unexpected loaded data: %+v", state)
	}
	if len(cache.snapshots) != 1 || len(cache.snapshots[0].Entries) != 4 {
		t.Fatalf("expected month cached, got %+v", cache.snapshots)
	}
}

func TestLoadMonth_ResetsGridState(t *testing.T) {
	t.Parallel()

	fixture := loadedFixture(t, worklog.Entry{UID: "a", TaskID: 5, Date: march(4), Hours: 2})
	engine := fixture.engine
	engine.AddNewTask(worklog.Task{TaskID: 77})
	engine.SelectLog(5, march(4), SelectSingle)
	engine.EnterKeyPressed()

	if err := engine.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	state := engine.Snapshot()
	if len(state.Selection) != 0 || state.Mode != ModeNone || state.EditingValue != "" {
		t.Fatalf("expected selection and editor reset, got %+v", state)
	}
	if len(state.NewlyAdded) != 0 || state.Tasks.Has(77) {
		t.Fatalf("expected newly added tasks cleared")
	}
	if !state.LastRefresh.Equal(testNow()) {
		t.Fatalf("expected refresh time recorded")
	}
}

func TestLoadMonth_SupersededLoadIsDiscarded(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		monthLog: func(_ context.Context, start, _ time.Time) ([]worklog.Entry, error) {
			if start.Month() == time.March {
				close(started)
				<-release
				return []worklog.Entry{{UID: "m1", TaskID: 1, Date: march(4), Hours: 1}}, nil
			}
			return []worklog.Entry{{UID: "m2", TaskID: 2, Date: april(2), Hours: 2}}, nil
		},
	}
	engine := newFixture(t, backend, submitter.StrategySequential).engine

	done := make(chan error, 1)
	go func() {
		done <- engine.LoadMonth(context.Background(), march(1))
	}()
	<-started

	if err := engine.LoadMonth(context.Background(), april(1)); err != nil {
		t.Fatalf("load april: %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("expected superseded load to return nil, got %v", err)
	}

	state := engine.Snapshot()
	if !state.Month.Equal(april(1)) {
		t.Fatalf("expected april visible, got %v", state.Month)
	}
	if len(state.Entries) != 1 || state.Entries[0].UID != "m2" {
		t.Fatalf("expected only april entries, got %+v", state.Entries)
	}
}

func TestLoadMonth_SupersededFetchErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	backend := &fakeBackend{
		monthLog: func(ctx context.Context, start, _ time.Time) ([]worklog.Entry, error) {
			if start.Month() == time.March {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return nil, nil
		},
	}
	engine := newFixture(t, backend, submitter.StrategySequential).engine

	done := make(chan error, 1)
	go func() {
		done <- engine.LoadMonth(context.Background(), march(1))
	}()
	<-started

	if err := engine.LoadMonth(context.Background(), april(1)); err != nil {
		t.Fatalf("load april: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("expected cancelled load to be swallowed, got %v", err)
	}
	if state := engine.Snapshot(); state.LoadError != "" || state.LoadingMonth {
		t.Fatalf("unexpected load state: %+v", state)
	}
}

func TestLoadMonth_ErrorIsReported(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		monthLog: func(context.Context, time.Time, time.Time) ([]worklog.Entry, error) {
			return nil, errors.New("bad gateway")
		},
	}
	engine := newFixture(t, backend, submitter.StrategySequential).engine

	err := engine.LoadMonth(context.Background(), march(1))
	if err == nil {
		t.Fatalf("expected load error")
	}

	state := engine.Snapshot()
	if state.LoadingMonth || state.LoadError == "" {
		t.Fatalf("expected load error state, got loading=%v error=%q", state.LoadingMonth, state.LoadError)
	}
}

func TestMonthNavigation(t *testing.T) {
	t.Parallel()

	engine := newFixture(t, &fakeBackend{}, submitter.StrategySequential).engine
	if err := engine.GoNextMonth(context.Background()); !errors.Is(err, ErrNoMonth) {
		t.Fatalf("expected ErrNoMonth, got %v", err)
	}

	if err := engine.LoadMonth(context.Background(), march(1)); err != nil {
		t.Fatalf("load month: %v", err)
	}
	if err := engine.GoNextMonth(context.Background()); err != nil {
		t.Fatalf("next month: %v", err)
	}
	if got := engine.Snapshot().Month; !got.Equal(april(1)) {
		t.Fatalf("expected april, got %v", got)
	}
	if err := engine.GoPreviousMonth(context.Background()); err != nil {
		t.Fatalf("previous month: %v", err)
	}
	if got := engine.Snapshot().Month; !got.Equal(march(1)) {
		t.Fatalf("expected march, got %v", got)
	}
}

func TestSubscribe_PublishesSnapshots(t *testing.T) {
	t.Parallel()

	engine := newFixture(t, &fakeBackend{}, submitter.StrategySequential).engine

	var received []State
	unsubscribe := engine.Subscribe(func(s State) { received = append(received, s) })

	engine.SelectLog(1, march(4), SelectSingle)
	engine.EnterKeyPressed()
	if len(received) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(received))
	}
	if received[0].Mode != ModeNone || received[1].Mode != ModeFull {
		t.Fatalf("expected snapshots in order, got %s then %s", received[0].Mode, received[1].Mode)
	}

	unsubscribe()
	engine.EscapeKeyPressed()
	if len(received) != 2 {
		t.Fatalf("expected no snapshot after unsubscribe")
	}
}

func TestNew_RequiresBackend(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without backend")
	}
}
