package streak

import (
	"fmt"
	"slices"
	"time"

	"habitflow/internal/model"
)

// DateLayout is the calendar-date format used throughout habit history.
// Lexicographic order on this layout equals chronological order.
const DateLayout = "2006-01-02"

// Reconcile recomputes the derived completion state of a habit history
// against a reference day. Pure function: same inputs, same outputs.
//
// The streak is the length of the run of consecutive calendar days ending at
// the most recent completion. A last completion older than yesterday means
// the streak is broken, regardless of what was persisted.
func Reconcile(history []string, today string) (streak int, completedToday bool) {
	if len(history) == 0 {
		return 0, false
	}

	sorted := slices.Clone(history)
	slices.Sort(sorted)

	last := sorted[len(sorted)-1]
	completedToday = last == today

	if last < PrevDay(today) {
		return 0, completedToday
	}

	return runLength(sorted), completedToday
}

// MarkDone records a completion for today. Idempotent within a day: if today
// is already in the history the habit is returned unchanged. Otherwise the
// streak is recomputed from the full history contiguity scan rather than
// trusting the possibly stale persisted value.
func MarkDone(h model.Habit, today string) (model.Habit, bool) {
	if slices.Contains(h.History, today) {
		h.CompletedToday = true
		return h, false
	}

	history := append(slices.Clone(h.History), today)
	slices.Sort(history)

	h.History = history
	h.Streak = runLength(history)
	h.Completion = min(100, h.Completion+10)
	h.CompletedToday = true
	return h, true
}

// ValidateHistory reports whether a history is well-formed: every entry a
// parseable YYYY-MM-DD date, no duplicates. Corrupt records are skipped by
// callers rather than failing the whole list.
func ValidateHistory(history []string) error {
	seen := make(map[string]struct{}, len(history))
	for _, d := range history {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("malformed history date %q: %w", d, err)
		}
		if _, dup := seen[d]; dup {
			return fmt.Errorf("duplicate history date %q", d)
		}
		seen[d] = struct{}{}
	}
	return nil
}

// PrevDay returns the calendar day before a YYYY-MM-DD date.
func PrevDay(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateLayout)
}

// runLength counts the consecutive-day run ending at the last entry of a
// sorted history. Any gap greater than one day terminates the run.
func runLength(sorted []string) int {
	n := 1
	for i := len(sorted) - 1; i > 0; i-- {
		if PrevDay(sorted[i]) != sorted[i-1] {
			break
		}
		n++
	}
	return n
}
