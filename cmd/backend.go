package cmd

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"hourgrid/config"
	"hourgrid/storage"
	"hourgrid/submitter"
	"hourgrid/timegrid"
	"hourgrid/weboffice"
	"hourgrid/worklog"
)

const userAgent = "hourgrid/1.0"

func resolveTokenStatePath(explicitPath string, cfg *config.Config) (string, error) {
	if strings.TrimSpace(explicitPath) != "" {
		return explicitPath, nil
	}
	if cfg != nil && strings.TrimSpace(cfg.WebOffice.TokenFile) != "" {
		return cfg.WebOffice.TokenFile, nil
	}
	return weboffice.DefaultTokenStatePath()
}

func resolveWebOfficeURL(urlOverride string, cfg *config.Config) (string, error) {
	rawURL := strings.TrimSpace(urlOverride)
	if rawURL == "" && cfg != nil {
		rawURL = strings.TrimSpace(cfg.WebOffice.URL)
	}
	if rawURL == "" {
		return "", fmt.Errorf("no WebOffice URL configured; set weboffice.url in config or pass --url")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}

func newWebOfficeClient(cfg *config.Config, urlOverride, tokenFile string, logger *slog.Logger) (*weboffice.HTTPClient, error) {
	baseURL, err := resolveWebOfficeURL(urlOverride, cfg)
	if err != nil {
		return nil, err
	}
	statePath, err := resolveTokenStatePath(tokenFile, cfg)
	if err != nil {
		return nil, err
	}
	token, err := weboffice.AccessTokenFromStateFile(statePath, time.Now())
	if err != nil {
		return nil, fmt.Errorf("read access token from %s: %w", statePath, err)
	}

	return weboffice.NewClient(weboffice.ClientConfig{
		BaseURL:     baseURL,
		AccessToken: token,
		UserAgent:   userAgent,
		Logger:      logger,
	})
}

// parseMonthFlag returns the first day of the given YYYY-MM month, or of the
// month containing now when the value is empty.
func parseMonthFlag(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local), nil
	}
	parsed, err := time.ParseInLocation("2006-01", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", value)
	}
	return parsed, nil
}

func pinnedTasks(cfg *config.Config) []worklog.Task {
	tasks := make([]worklog.Task, 0, len(cfg.Tasks))
	for _, task := range cfg.Tasks {
		tasks = append(tasks, worklog.Task{
			TaskID:             task.TaskID,
			Project:            task.Project,
			Description:        task.Description,
			CustRefDescription: task.CustRefDescription,
		})
	}
	return tasks
}

type engineDeps struct {
	backend   timegrid.Backend
	workTimes timegrid.WorkTimeSource
	store     *storage.SQLiteStore
	notifier  timegrid.Notifier
	logger    *slog.Logger
}

func newEngine(cfg *config.Config, deps engineDeps) (*timegrid.Engine, error) {
	strategy, err := submitter.ParseStrategy(cfg.Sync.Strategy)
	if err != nil {
		return nil, err
	}

	opts := timegrid.Options{
		Backend:   deps.backend,
		WorkTimes: deps.workTimes,
		Strategy:  strategy,
		Notifier:  deps.notifier,
		Logger:    deps.logger,
		ImportMetadata: timegrid.ImportMetadata{
			IsWorkFromHome:          cfg.Import.WorkFromHome,
			WorkFromHomeStart:       cfg.Import.WorkFromHomeStart,
			SelectedTypeOfWorkIndex: cfg.Import.TypeOfWorkIndex,
		},
		PinnedTasks:    pinnedTasks(cfg),
		DisplayWeekend: cfg.Display.Weekend,
	}
	if deps.store != nil {
		opts.Cache = deps.store
		opts.Journal = deps.store
	}
	return timegrid.New(opts)
}

// openCache opens the local SQLite cache, or returns nil when cache.db is
// empty.
func openCache(cfg *config.Config, override string) (*storage.SQLiteStore, error) {
	path := strings.TrimSpace(override)
	if path == "" {
		path = strings.TrimSpace(cfg.Cache.DB)
	}
	if path == "" {
		return nil, nil
	}
	return storage.OpenSQLite(path)
}
