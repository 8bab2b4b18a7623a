package timegrid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"hourgrid/storage"
	"hourgrid/submitter"
	"hourgrid/weboffice"
	"hourgrid/worklog"
)

var (
	ErrNoMonth          = errors.New("no month loaded")
	ErrMonthLoading     = errors.New("month data is still loading")
	ErrImportInProgress = errors.New("an import is in progress, commit or cancel it first")
	ErrNoImport         = errors.New("no import in progress")
)

// Backend is the part of the WebOffice API the engine talks to.
type Backend interface {
	FetchMonthLog(ctx context.Context, start, end time.Time) ([]worklog.Entry, error)
	FetchTypesOfWork(ctx context.Context) ([]worklog.TypeOfWork, error)
	FetchFavoriteTasks(ctx context.Context) ([]worklog.Task, error)
	AddFavoriteTask(ctx context.Context, taskID int64) error
	RemoveFavoriteTask(ctx context.Context, taskID int64) error
	BulkUpsert(ctx context.Context, entries []worklog.Entry) ([]weboffice.UpsertResult, error)
}

// WorkTimeSource provides externally tracked durations for imports.
type WorkTimeSource interface {
	FetchWorkTimes(ctx context.Context, start, end time.Time) ([]weboffice.WorkTime, error)
}

type MonthCache interface {
	SaveMonth(snapshot storage.MonthSnapshot) error
}

// ImportJournal persists a staged import so it survives a restart.
type ImportJournal interface {
	SaveImportSession(session storage.ImportSession) error
	LoadImportSession() (storage.ImportSession, bool, error)
	ClearImportSession() error
}

type Options struct {
	Backend Backend
	// WorkTimes defaults to Backend when it implements WorkTimeSource.
	WorkTimes      WorkTimeSource
	Strategy       submitter.Strategy
	Notifier       Notifier
	Logger         *slog.Logger
	Cache          MonthCache
	Journal        ImportJournal
	PinnedTasks    []worklog.Task
	ImportMetadata ImportMetadata
	DisplayWeekend bool
	Now            func() time.Time
}

// Engine owns the grid state. Every change replaces the whole snapshot and
// is published to subscribers.
type Engine struct {
	mu         sync.Mutex
	state      State
	token      uint64
	cancelLoad context.CancelFunc

	version     uint64
	publishMu   sync.Mutex
	published   uint64
	subscribers map[int]func(State)
	nextSubID   int

	backend   Backend
	workTimes WorkTimeSource
	submitter *submitter.Service
	notifier  Notifier
	logger    *slog.Logger
	cache     MonthCache
	journal   ImportJournal
	pinned    []worklog.Task
	now       func() time.Time
}

func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, errors.New("backend is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workTimes := opts.WorkTimes
	if workTimes == nil {
		if source, ok := opts.Backend.(WorkTimeSource); ok {
			workTimes = source
		}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewNotificationCenter(logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		state: State{
			Tasks:          TaskRegistry{ByID: map[int64]worklog.Task{}},
			ImportMetadata: opts.ImportMetadata,
			DisplayWeekend: opts.DisplayWeekend,
		},
		subscribers: make(map[int]func(State)),
		backend:     opts.Backend,
		workTimes:   workTimes,
		submitter:   submitter.NewService(opts.Backend, opts.Strategy, logger),
		notifier:    notifier,
		logger:      logger,
		cache:       opts.Cache,
		journal:     opts.Journal,
		pinned:      opts.PinnedTasks,
		now:         now,
	}, nil
}

// Snapshot returns the current state. Callers must not modify it.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe registers fn for every published snapshot and returns a function
// that removes it.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

// setLocked stores next and returns the publish step to run after e.mu is
// released. Snapshots older than one already published are skipped.
func (e *Engine) setLocked(next State) func() {
	e.state = next
	e.version++
	version := e.version

	subscribers := make([]func(State), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subscribers = append(subscribers, fn)
	}

	return func() {
		e.publishMu.Lock()
		defer e.publishMu.Unlock()
		if version <= e.published {
			return
		}
		e.published = version
		for _, fn := range subscribers {
			fn(next)
		}
	}
}

func (e *Engine) update(reduce func(State) State) State {
	e.mu.Lock()
	next := reduce(e.state)
	publish := e.setLocked(next)
	e.mu.Unlock()

	publish()
	return next
}

func (e *Engine) SelectLog(taskID int64, day time.Time, mode SelectionMode) State {
	return e.update(func(s State) State { return SelectLog(s, taskID, day, mode) })
}

func (e *Engine) NavigateKeyPressed(direction Direction) State {
	return e.update(func(s State) State { return NavigateKeyPressed(s, direction) })
}

func (e *Engine) EnterKeyPressed() State {
	return e.update(EnterKeyPressed)
}

func (e *Engine) EscapeKeyPressed() State {
	return e.update(EscapeKeyPressed)
}

func (e *Engine) UpdateEditingValue(value string) State {
	return e.update(func(s State) State { return UpdateEditingValue(s, value) })
}

func (e *Engine) ChangeDisplayWeekend(value bool) State {
	return e.update(func(s State) State { return ChangeDisplayWeekend(s, value) })
}

func (e *Engine) SetImportMetadata(metadata ImportMetadata) State {
	return e.update(func(s State) State {
		next := s
		next.ImportMetadata = metadata
		return next
	})
}

func (e *Engine) AddNewTask(task worklog.Task) State {
	return e.update(func(s State) State { return AddNewTask(s, task) })
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}
