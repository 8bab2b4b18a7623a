package cmd

import (
	"errors"
	"testing"
	"time"

	"hourgrid/storage"
)

type fakeSessionLoader struct {
	session storage.ImportSession
	ok      bool
	err     error
}

func (f fakeSessionLoader) LoadImportSession() (storage.ImportSession, bool, error) {
	return f.session, f.ok, f.err
}

func TestResolveServeMonth_NoFlagUsesCurrentMonth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 17, 9, 0, 0, 0, time.Local)
	month, err := resolveServeMonth("", nil, now)
	if err != nil {
		t.Fatalf("resolve month: %v", err)
	}
	if got := month.Format("2006-01-02"); got != "2026-03-01" {
		t.Fatalf("expected first day of current month, got %q", got)
	}
}

func TestResolveServeMonth_PrefersPendingImport(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 17, 9, 0, 0, 0, time.Local)
	journal := fakeSessionLoader{
		ok:      true,
		session: storage.ImportSession{Month: time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)},
	}

	month, err := resolveServeMonth("", journal, now)
	if err != nil {
		t.Fatalf("resolve month: %v", err)
	}
	if got := month.Format("2006-01"); got != "2026-01" {
		t.Fatalf("expected pending import month, got %q", got)
	}

	explicit, err := resolveServeMonth("2025-11", journal, now)
	if err != nil {
		t.Fatalf("resolve explicit month: %v", err)
	}
	if got := explicit.Format("2006-01"); got != "2025-11" {
		t.Fatalf("expected explicit month to win, got %q", got)
	}
}

func TestResolveServeMonth_Errors(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if _, err := resolveServeMonth("2026-13", nil, now); err == nil {
		t.Fatalf("expected invalid month error")
	}
	if _, err := resolveServeMonth("", fakeSessionLoader{err: errors.New("locked")}, now); err == nil {
		t.Fatalf("expected journal error")
	}
}
