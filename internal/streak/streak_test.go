package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitflow/internal/model"
)

func TestReconcileEmptyHistory(t *testing.T) {
	streak, done := Reconcile(nil, "2024-03-10")
	assert.Equal(t, 0, streak)
	assert.False(t, done)
}

func TestReconcileCompletedToday(t *testing.T) {
	streak, done := Reconcile([]string{"2024-03-09", "2024-03-10"}, "2024-03-10")
	assert.Equal(t, 2, streak)
	assert.True(t, done)
}

func TestReconcileGapResets(t *testing.T) {
	// Last completion is days stale: streak is gone.
	streak, done := Reconcile([]string{"2024-01-01", "2024-01-05"}, "2024-01-10")
	assert.Equal(t, 0, streak)
	assert.False(t, done)
}

func TestReconcileLoneYesterdayCountsOne(t *testing.T) {
	// 01-05 is yesterday, so the run survives; the gap before it only
	// limits the run to that single day.
	streak, done := Reconcile([]string{"2024-01-01", "2024-01-05"}, "2024-01-06")
	assert.Equal(t, 1, streak)
	assert.False(t, done)
}

func TestReconcileYesterdayKeepsStreak(t *testing.T) {
	streak, done := Reconcile([]string{"2024-03-07", "2024-03-08", "2024-03-09"}, "2024-03-10")
	assert.Equal(t, 3, streak)
	assert.False(t, done)
}

func TestReconcileRunStopsAtGap(t *testing.T) {
	history := []string{"2024-03-01", "2024-03-05", "2024-03-06", "2024-03-07"}
	streak, _ := Reconcile(history, "2024-03-07")
	assert.Equal(t, 3, streak)
}

func TestReconcileUnsortedInput(t *testing.T) {
	streak, done := Reconcile([]string{"2024-03-10", "2024-03-08", "2024-03-09"}, "2024-03-10")
	assert.Equal(t, 3, streak)
	assert.True(t, done)
}

func TestReconcileMonotonicity(t *testing.T) {
	// Consecutive days d..d+k reconciled at d+k yield streak k+1.
	history := []string{}
	day := "2024-02-25"
	for k := 0; k < 6; k++ {
		history = append(history, day)
		streak, done := Reconcile(history, day)
		assert.Equal(t, k+1, streak)
		assert.True(t, done)
		day = nextDay(t, day)
	}
}

func TestReconcileDeterministic(t *testing.T) {
	history := []string{"2024-03-08", "2024-03-09"}
	s1, d1 := Reconcile(history, "2024-03-10")
	s2, d2 := Reconcile(history, "2024-03-10")
	assert.Equal(t, s1, s2)
	assert.Equal(t, d1, d2)
}

func TestMarkDoneFirstCompletion(t *testing.T) {
	h := model.Habit{ID: "h1", Name: "read"}

	updated, changed := MarkDone(h, "2024-03-10")
	require.True(t, changed)
	assert.Equal(t, []string{"2024-03-10"}, updated.History)
	assert.Equal(t, 1, updated.Streak)
	assert.Equal(t, 10, updated.Completion)
	assert.True(t, updated.CompletedToday)
}

func TestMarkDoneExtendsStreak(t *testing.T) {
	h := model.Habit{History: []string{"2024-03-09"}, Streak: 1, Completion: 10}

	updated, changed := MarkDone(h, "2024-03-10")
	require.True(t, changed)
	assert.Equal(t, 2, updated.Streak)
	assert.Equal(t, 20, updated.Completion)
}

func TestMarkDoneIdempotentWithinDay(t *testing.T) {
	h := model.Habit{History: []string{"2024-03-10"}, Streak: 1, Completion: 10}

	updated, changed := MarkDone(h, "2024-03-10")
	assert.False(t, changed)
	assert.Equal(t, h.History, updated.History)
	assert.Equal(t, 1, updated.Streak)
	assert.Equal(t, 10, updated.Completion)
}

func TestMarkDoneRestartsAfterGap(t *testing.T) {
	// Persisted streak is stale; the contiguity scan restarts at 1.
	h := model.Habit{History: []string{"2024-03-01", "2024-03-02"}, Streak: 2, Completion: 20}

	updated, changed := MarkDone(h, "2024-03-10")
	require.True(t, changed)
	assert.Equal(t, 1, updated.Streak)
}

func TestMarkDoneCompletionClamp(t *testing.T) {
	h := model.Habit{}
	day := "2024-01-01"
	for i := 0; i < 11; i++ {
		var changed bool
		h, changed = MarkDone(h, day)
		require.True(t, changed)
		assert.LessOrEqual(t, h.Completion, 100)
		day = nextDay(t, day)
	}
	assert.Equal(t, 100, h.Completion)
	assert.Equal(t, 11, h.Streak)
}

func TestMarkDoneDoesNotMutateInput(t *testing.T) {
	history := []string{"2024-03-09"}
	h := model.Habit{History: history}

	_, _ = MarkDone(h, "2024-03-10")
	assert.Equal(t, []string{"2024-03-09"}, history)
}

func TestValidateHistory(t *testing.T) {
	assert.NoError(t, ValidateHistory(nil))
	assert.NoError(t, ValidateHistory([]string{"2024-03-09", "2024-03-10"}))
	assert.Error(t, ValidateHistory([]string{"not-a-date"}))
	assert.Error(t, ValidateHistory([]string{"2024-3-9"}))
	assert.Error(t, ValidateHistory([]string{"2024-03-09", "2024-03-09"}))
}

func TestPrevDayCrossesMonthAndYear(t *testing.T) {
	assert.Equal(t, "2024-02-29", PrevDay("2024-03-01"))
	assert.Equal(t, "2023-12-31", PrevDay("2024-01-01"))
}

func nextDay(t *testing.T, date string) string {
	t.Helper()
	parsed, err := time.Parse(DateLayout, date)
	require.NoError(t, err)
	return parsed.AddDate(0, 0, 1).Format(DateLayout)
}
