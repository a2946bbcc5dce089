package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CheckAccount Phase = iota
	FetchHistory
	ResolveDuration
	StoreRecords
	Finalize
)

func (p Phase) String() string {
	switch p {
	case CheckAccount:
		return "check_account"
	case FetchHistory:
		return "fetch_history"
	case ResolveDuration:
		return "resolve_duration"
	case StoreRecords:
		return "store_records"
	case Finalize:
		return "finalize"
	default:
		return ""
	}
}

func checkAccountUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckAccount,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking play counts for %s...", user),
	}
}

func fetchRecordUpdate(step, total int, track string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Importing %s...", track),
	}
}

func resolveDurationUpdate(step, total int, track string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveDuration,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Looking up duration for %s...", track),
	}
}

func storedRecordUpdate(step, total int, result *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Archived %d scrobbles...", result.Imported),
		Data:    result,
	}
}

func finalizeUpdate(total int, result *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finalize,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Imported %d of %d records", result.Imported, result.Seen),
		Data:    result,
	}
}
