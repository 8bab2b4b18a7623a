package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hourgrid/worklog"

	_ "modernc.org/sqlite"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"

	entryKindBaseline = "baseline"
	entryKindStaged   = "staged"
)

type SQLiteStore struct {
	db *sql.DB
}

// MonthSnapshot is the last loaded state of one month.
type MonthSnapshot struct {
	Month       time.Time
	Entries     []worklog.Entry
	TypesOfWork []worklog.TypeOfWork
	SavedAt     time.Time
}

// StagedEntry is an entry written by an import session. Updated marks entries
// the user edited after the import.
type StagedEntry struct {
	Entry   worklog.Entry
	Updated bool
}

// ImportSession is the journal of a staged import: the baseline to restore on
// cancel and the entries waiting for commit.
type ImportSession struct {
	Month    time.Time
	TakenAt  time.Time
	Baseline []worklog.Entry
	Staged   []StagedEntry
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS months (
	month TEXT PRIMARY KEY,
	saved_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS month_entries (
	month TEXT NOT NULL,
	uid TEXT NOT NULL DEFAULT '',
	task_id INTEGER NOT NULL,
	day TEXT NOT NULL,
	hours REAL NOT NULL CHECK(hours >= 0),
	description TEXT NOT NULL,
	cust_ref_description TEXT NOT NULL,
	project_name TEXT NOT NULL,
	type_of_work TEXT NOT NULL,
	is_work_from_home INTEGER NOT NULL,
	work_from_home_started REAL NOT NULL,
	PRIMARY KEY(month, task_id, day)
);
CREATE TABLE IF NOT EXISTS types_of_work (
	id TEXT PRIMARY KEY,
	key TEXT NOT NULL,
	description TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS import_session (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	month TEXT NOT NULL,
	taken_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS import_entries (
	kind TEXT NOT NULL CHECK(kind IN ('baseline', 'staged')),
	updated INTEGER NOT NULL DEFAULT 0,
	uid TEXT NOT NULL DEFAULT '',
	task_id INTEGER NOT NULL,
	day TEXT NOT NULL,
	hours REAL NOT NULL,
	description TEXT NOT NULL,
	cust_ref_description TEXT NOT NULL,
	project_name TEXT NOT NULL,
	type_of_work TEXT NOT NULL,
	is_work_from_home INTEGER NOT NULL,
	work_from_home_started REAL NOT NULL,
	PRIMARY KEY(kind, task_id, day)
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveMonth replaces the cached entries of the snapshot's month and the
// cached type-of-work catalog.
func (s *SQLiteStore) SaveMonth(snapshot MonthSnapshot) error {
	if snapshot.Month.IsZero() {
		return errors.New("month is required")
	}
	month := snapshot.Month.Format(monthLayout)
	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM month_entries WHERE month = ?;`, month); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear month %s: %w", month, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO months (month, saved_at) VALUES (?, ?) ON CONFLICT(month) DO UPDATE SET saved_at = excluded.saved_at;`,
		month,
		savedAt.Format(time.RFC3339),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save month %s: %w", month, err)
	}

	const insertStmt = `
INSERT OR REPLACE INTO month_entries (
	month,
	uid,
	task_id,
	day,
	hours,
	description,
	cust_ref_description,
	project_name,
	type_of_work,
	is_work_from_home,
	work_from_home_started
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range snapshot.Entries {
		if _, err := stmt.Exec(append([]any{month}, entryColumns(entry)...)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert entry task %d day %s: %w", entry.TaskID, worklog.DayKey(entry.Date), err)
		}
	}

	if len(snapshot.TypesOfWork) > 0 {
		if _, err := tx.Exec(`DELETE FROM types_of_work;`); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear types of work: %w", err)
		}
		for _, typeOfWork := range snapshot.TypesOfWork {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO types_of_work (id, key, description) VALUES (?, ?, ?);`,
				typeOfWork.ID,
				typeOfWork.Key,
				typeOfWork.Description,
			); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert type of work %q: %w", typeOfWork.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadMonth returns the cached snapshot of month. The second return value is
// false when the month was never saved.
func (s *SQLiteStore) LoadMonth(month time.Time) (MonthSnapshot, bool, error) {
	key := month.Format(monthLayout)

	var savedAtRaw string
	err := s.db.QueryRow(`SELECT saved_at FROM months WHERE month = ?;`, key).Scan(&savedAtRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MonthSnapshot{}, false, nil
		}
		return MonthSnapshot{}, false, fmt.Errorf("query month %s: %w", key, err)
	}

	snapshot := MonthSnapshot{}
	snapshot.Month, err = time.ParseInLocation(monthLayout, key, time.Local)
	if err != nil {
		return MonthSnapshot{}, false, fmt.Errorf("parse month %q: %w", key, err)
	}
	snapshot.SavedAt, err = time.Parse(time.RFC3339, savedAtRaw)
	if err != nil {
		return MonthSnapshot{}, false, fmt.Errorf("parse saved_at %q: %w", savedAtRaw, err)
	}

	rows, err := s.db.Query(`
SELECT
	uid,
	task_id,
	day,
	hours,
	description,
	cust_ref_description,
	project_name,
	type_of_work,
	is_work_from_home,
	work_from_home_started
FROM month_entries
WHERE month = ?
ORDER BY task_id, day;`, key)
	if err != nil {
		return MonthSnapshot{}, false, fmt.Errorf("query month entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return MonthSnapshot{}, false, err
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return MonthSnapshot{}, false, fmt.Errorf("iterate month entries: %w", err)
	}

	snapshot.TypesOfWork, err = s.listTypesOfWork()
	if err != nil {
		return MonthSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) listTypesOfWork() ([]worklog.TypeOfWork, error) {
	rows, err := s.db.Query(`SELECT id, key, description FROM types_of_work ORDER BY key, id;`)
	if err != nil {
		return nil, fmt.Errorf("query types of work: %w", err)
	}
	defer rows.Close()

	types := make([]worklog.TypeOfWork, 0, 16)
	for rows.Next() {
		var typeOfWork worklog.TypeOfWork
		if err := rows.Scan(&typeOfWork.ID, &typeOfWork.Key, &typeOfWork.Description); err != nil {
			return nil, fmt.Errorf("scan type of work: %w", err)
		}
		types = append(types, typeOfWork)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate types of work: %w", err)
	}
	return types, nil
}

// SaveImportSession replaces the journaled import session.
func (s *SQLiteStore) SaveImportSession(session ImportSession) error {
	if session.Month.IsZero() {
		return errors.New("month is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := clearImportSession(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	takenAt := session.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}
	if _, err := tx.Exec(
		`INSERT INTO import_session (id, month, taken_at) VALUES (1, ?, ?);`,
		session.Month.Format(monthLayout),
		takenAt.Format(time.RFC3339),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert import session: %w", err)
	}

	const insertStmt = `
INSERT OR REPLACE INTO import_entries (
	kind,
	updated,
	uid,
	task_id,
	day,
	hours,
	description,
	cust_ref_description,
	project_name,
	type_of_work,
	is_work_from_home,
	work_from_home_started
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range session.Baseline {
		if _, err := stmt.Exec(append([]any{entryKindBaseline, false}, entryColumns(entry)...)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert baseline entry: %w", err)
		}
	}
	for _, staged := range session.Staged {
		if _, err := stmt.Exec(append([]any{entryKindStaged, staged.Updated}, entryColumns(staged.Entry)...)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert staged entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadImportSession returns the journaled import session, if any.
func (s *SQLiteStore) LoadImportSession() (ImportSession, bool, error) {
	var monthRaw, takenAtRaw string
	err := s.db.QueryRow(`SELECT month, taken_at FROM import_session WHERE id = 1;`).Scan(&monthRaw, &takenAtRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImportSession{}, false, nil
		}
		return ImportSession{}, false, fmt.Errorf("query import session: %w", err)
	}

	session := ImportSession{}
	session.Month, err = time.ParseInLocation(monthLayout, monthRaw, time.Local)
	if err != nil {
		return ImportSession{}, false, fmt.Errorf("parse month %q: %w", monthRaw, err)
	}
	session.TakenAt, err = time.Parse(time.RFC3339, takenAtRaw)
	if err != nil {
		return ImportSession{}, false, fmt.Errorf("parse taken_at %q: %w", takenAtRaw, err)
	}

	rows, err := s.db.Query(`
SELECT
	kind,
	updated,
	uid,
	task_id,
	day,
	hours,
	description,
	cust_ref_description,
	project_name,
	type_of_work,
	is_work_from_home,
	work_from_home_started
FROM import_entries
ORDER BY kind, task_id, day;`)
	if err != nil {
		return ImportSession{}, false, fmt.Errorf("query import entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind    string
			updated bool
		)
		entry, err := scanEntry(rows, &kind, &updated)
		if err != nil {
			return ImportSession{}, false, err
		}
		switch kind {
		case entryKindBaseline:
			session.Baseline = append(session.Baseline, entry)
		case entryKindStaged:
			session.Staged = append(session.Staged, StagedEntry{Entry: entry, Updated: updated})
		default:
			return ImportSession{}, false, fmt.Errorf("unknown import entry kind %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return ImportSession{}, false, fmt.Errorf("iterate import entries: %w", err)
	}

	return session, true, nil
}

// ClearImportSession removes the journaled import session.
func (s *SQLiteStore) ClearImportSession() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := clearImportSession(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func clearImportSession(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM import_entries;`); err != nil {
		return fmt.Errorf("clear import entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM import_session;`); err != nil {
		return fmt.Errorf("clear import session: %w", err)
	}
	return nil
}

func entryColumns(entry worklog.Entry) []any {
	return []any{
		entry.UID,
		entry.TaskID,
		worklog.DayKey(entry.Date),
		entry.Hours,
		entry.Description,
		entry.CustRefDescription,
		entry.ProjectName,
		entry.TypeOfWork,
		entry.IsWorkFromHome,
		entry.WorkFromHomeStarted,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads the entry columns in entryColumns order, preceded by any
// extra destinations.
func scanEntry(rows rowScanner, extra ...any) (worklog.Entry, error) {
	var (
		entry  worklog.Entry
		dayRaw string
	)
	dest := append(extra,
		&entry.UID,
		&entry.TaskID,
		&dayRaw,
		&entry.Hours,
		&entry.Description,
		&entry.CustRefDescription,
		&entry.ProjectName,
		&entry.TypeOfWork,
		&entry.IsWorkFromHome,
		&entry.WorkFromHomeStarted,
	)
	if err := rows.Scan(dest...); err != nil {
		return worklog.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	day, err := time.ParseInLocation(dayLayout, strings.TrimSpace(dayRaw), time.Local)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("parse day %q: %w", dayRaw, err)
	}
	entry.Date = day
	return entry, nil
}
