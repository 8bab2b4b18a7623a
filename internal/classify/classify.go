package classify

import "hourgrid/worklog"

// Outcome is the decision taken for one externally tracked (task, day) duration.
type Outcome int

const (
	// Import means the duration differs from the stored entry (or there is none).
	Import Outcome = iota
	// Unchanged means the stored entry already carries exactly this duration.
	Unchanged
	// Ignored means the duration is not positive. Such records never create,
	// change or clear an entry.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Import:
		return "import"
	case Unchanged:
		return "unchanged"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// ClassifyWorkTime decides what an imported duration does to the cell whose
// current entry is existing (found reports whether there is one).
func ClassifyWorkTime(existing worklog.Entry, found bool, duration float64) Outcome {
	if duration <= 0 {
		return Ignored
	}
	if found && existing.Hours == duration {
		return Unchanged
	}
	return Import
}
