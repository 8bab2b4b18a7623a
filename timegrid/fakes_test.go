package timegrid

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"hourgrid/storage"
	"hourgrid/submitter"
	"hourgrid/weboffice"
	"hourgrid/worklog"
)

type fakeBackend struct {
	mu sync.Mutex

	monthLog    func(ctx context.Context, start, end time.Time) ([]worklog.Entry, error)
	types       []worklog.TypeOfWork
	favorites   []worklog.Task
	favoriteErr error
	upsert      func(entries []worklog.Entry) ([]weboffice.UpsertResult, error)
	workTimes   []weboffice.WorkTime
	workTimeErr error

	upsertCalls    [][]worklog.Entry
	workTimeRanges [][2]time.Time
	favoriteCalls  []string
}

func (f *fakeBackend) FetchMonthLog(ctx context.Context, start, end time.Time) ([]worklog.Entry, error) {
	if f.monthLog == nil {
		return nil, nil
	}
	return f.monthLog(ctx, start, end)
}

func (f *fakeBackend) FetchTypesOfWork(context.Context) ([]worklog.TypeOfWork, error) {
	return f.types, nil
}

func (f *fakeBackend) FetchFavoriteTasks(context.Context) ([]worklog.Task, error) {
	return f.favorites, nil
}

func (f *fakeBackend) AddFavoriteTask(_ context.Context, taskID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favoriteCalls = append(f.favoriteCalls, fmt.Sprintf("add %d", taskID))
	return f.favoriteErr
}

func (f *fakeBackend) RemoveFavoriteTask(_ context.Context, taskID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favoriteCalls = append(f.favoriteCalls, fmt.Sprintf("remove %d", taskID))
	return f.favoriteErr
}

func (f *fakeBackend) BulkUpsert(_ context.Context, entries []worklog.Entry) ([]weboffice.UpsertResult, error) {
	f.mu.Lock()
	f.upsertCalls = append(f.upsertCalls, append([]worklog.Entry(nil), entries...))
	fn := f.upsert
	f.mu.Unlock()

	if fn == nil {
		fn = echoUpsert
	}
	return fn(entries)
}

func (f *fakeBackend) FetchWorkTimes(_ context.Context, start, end time.Time) ([]weboffice.WorkTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workTimeRanges = append(f.workTimeRanges, [2]time.Time{start, end})
	return f.workTimes, f.workTimeErr
}

func (f *fakeBackend) calls() [][]worklog.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]worklog.Entry(nil), f.upsertCalls...)
}

// echoUpsert saves every entry as sent, assigning a UID to new ones.
func echoUpsert(entries []worklog.Entry) ([]weboffice.UpsertResult, error) {
	out := make([]weboffice.UpsertResult, 0, len(entries))
	for _, entry := range entries {
		saved := entry
		if saved.UID == "" {
			saved.UID = fmt.Sprintf("srv-%d-%s", entry.TaskID, worklog.DayKey(entry.Date))
		}
		out = append(out, weboffice.UpsertResult{Entry: saved, TaskID: saved.TaskID, Date: saved.Date})
	}
	return out, nil
}

type recordedNotification struct {
	title       string
	description string
	context     string
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []recordedNotification
}

func (n *recordingNotifier) Notify(title, description, context string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, recordedNotification{title: title, description: description, context: context})
}

func (n *recordingNotifier) all() []recordedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNotification(nil), n.items...)
}

type fakeJournal struct {
	mu      sync.Mutex
	session *storage.ImportSession
	saves   int
	clears  int
}

func (j *fakeJournal) SaveImportSession(session storage.ImportSession) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.session = &session
	j.saves++
	return nil
}

func (j *fakeJournal) LoadImportSession() (storage.ImportSession, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.session == nil {
		return storage.ImportSession{}, false, nil
	}
	return *j.session, true, nil
}

func (j *fakeJournal) ClearImportSession() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.session = nil
	j.clears++
	return nil
}

type fakeCache struct {
	mu        sync.Mutex
	snapshots []storage.MonthSnapshot
}

func (c *fakeCache) SaveMonth(snapshot storage.MonthSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, snapshot)
	return nil
}

func march(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.Local)
}

func testNow() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
}

type engineFixture struct {
	engine   *Engine
	backend  *fakeBackend
	notifier *recordingNotifier
	journal  *fakeJournal
}

func newFixture(t *testing.T, backend *fakeBackend, strategy submitter.Strategy) engineFixture {
	t.Helper()

	notifier := &recordingNotifier{}
	journal := &fakeJournal{}
	start := 8.0
	index := 0
	engine, err := New(Options{
		Backend:  backend,
		Strategy: strategy,
		Notifier: notifier,
		Journal:  journal,
		ImportMetadata: ImportMetadata{
			IsWorkFromHome:          true,
			WorkFromHomeStart:       &start,
			SelectedTypeOfWorkIndex: &index,
		},
		Now: testNow,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engineFixture{engine: engine, backend: backend, notifier: notifier, journal: journal}
}

// loadedFixture returns an engine with March 2024 loaded from entries.
func loadedFixture(t *testing.T, entries ...worklog.Entry) engineFixture {
	t.Helper()

	backend := &fakeBackend{
		monthLog: func(context.Context, time.Time, time.Time) ([]worklog.Entry, error) {
			return append([]worklog.Entry(nil), entries...), nil
		},
		types: []worklog.TypeOfWork{{ID: "1", Key: "DEV", Description: "Development"}},
	}
	fixture := newFixture(t, backend, submitter.StrategySequential)
	if err := fixture.engine.LoadMonth(context.Background(), march(1)); err != nil {
		t.Fatalf("load month: %v", err)
	}
	return fixture
}

func entryAt(t *testing.T, state State, taskID int64, day time.Time) worklog.Entry {
	t.Helper()
	entry, ok := LogInfo(state, taskID, day)
	if !ok {
		t.Fatalf("expected entry for task %d on %s", taskID, worklog.DayKey(day))
	}
	return entry
}

func cellStatus(state State, taskID int64, day time.Time) (Status, bool) {
	key := worklog.KeyOf(taskID, day)
	for _, cell := range state.Selection {
		if cell.Key() == key {
			return cell.Status, true
		}
	}
	return 0, false
}
