package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"hourgrid/config"
	"hourgrid/storage"
	"hourgrid/worklog"
)

func TestDetectExportFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"./grid.csv":  "csv",
		"./grid.XLSX": "excel",
		"./grid.xlsm": "excel",
		"./grid.out":  "csv",
		"grid":        "csv",
	}
	for path, want := range tests {
		if got := detectExportFormat(path); got != want {
			t.Fatalf("detectExportFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoadCachedMonth(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	month := time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local)

	store, err := storage.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	err = store.SaveMonth(storage.MonthSnapshot{
		Month:   month,
		Entries: []worklog.Entry{{UID: "u1", TaskID: 5, Date: time.Date(2026, 2, 3, 0, 0, 0, 0, time.Local), Hours: 4}},
		SavedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("save month: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	cfg := &config.Config{
		Cache: config.CacheConfig{DB: dbPath},
		Tasks: []config.PinnedTask{{TaskID: 9, Project: "Pinned", Description: "Standby"}},
	}
	tasks, entries, err := loadCachedMonth(cfg, month)
	if err != nil {
		t.Fatalf("load cached month: %v", err)
	}
	if len(entries) != 1 || entries[0].Hours != 4 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if len(tasks) != 1 || tasks[0].TaskID != 9 {
		t.Fatalf("expected pinned tasks, got %+v", tasks)
	}

	if _, _, err := loadCachedMonth(cfg, month.AddDate(0, 1, 0)); err == nil {
		t.Fatalf("expected error for uncached month")
	}
	if _, _, err := loadCachedMonth(&config.Config{}, month); err == nil {
		t.Fatalf("expected error without cache path")
	}
}
