package worklog

import "time"

const dayKeyLayout = "2006-01-02"

// Entry is one hours record for a (task, day) cell of the grid.
type Entry struct {
	// UID is assigned by the backend once the entry was persisted; empty for
	// entries that only exist locally.
	UID                 string
	TaskID              int64
	Date                time.Time
	Hours               float64
	Description         string
	CustRefDescription  string
	ProjectName         string
	TypeOfWork          string
	IsWorkFromHome      bool
	WorkFromHomeStarted float64
}

// Key identifies a grid cell. Two entries with the same key describe the same cell.
type Key struct {
	TaskID int64
	Day    string
}

func KeyOf(taskID int64, day time.Time) Key {
	return Key{TaskID: taskID, Day: DayKey(day)}
}

func (e Entry) Key() Key {
	return KeyOf(e.TaskID, e.Date)
}

// DayKey formats the calendar day of value, ignoring the clock.
func DayKey(value time.Time) string {
	return value.Format(dayKeyLayout)
}

type Task struct {
	TaskID             int64
	Project            string
	Description        string
	CustRefDescription string
}

type TypeOfWork struct {
	ID          string
	Key         string
	Description string
}

// IndexByKey returns the entries keyed by cell. Later entries win.
func IndexByKey(entries []Entry) map[Key]Entry {
	out := make(map[Key]Entry, len(entries))
	for _, entry := range entries {
		out[entry.Key()] = entry
	}
	return out
}

// Find returns the entry stored for the cell, if any.
func Find(entries []Entry, key Key) (Entry, bool) {
	for _, entry := range entries {
		if entry.Key() == key {
			return entry, true
		}
	}
	return Entry{}, false
}

// ReplaceByKey removes every entry whose key is present in replacements and
// appends the replacements in order. The input slice is not modified.
func ReplaceByKey(entries, replacements []Entry) []Entry {
	drop := make(map[Key]struct{}, len(replacements))
	for _, entry := range replacements {
		drop[entry.Key()] = struct{}{}
	}

	out := make([]Entry, 0, len(entries)+len(replacements))
	for _, entry := range entries {
		if _, ok := drop[entry.Key()]; ok {
			continue
		}
		out = append(out, entry)
	}
	return append(out, replacements...)
}

// RemoveKey returns a copy of entries without the cell.
func RemoveKey(entries []Entry, key Key) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Key() == key {
			continue
		}
		out = append(out, entry)
	}
	return out
}
