package insight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
)

type fakeGenerator struct {
	calls    int
	received [][]model.HabitSummary
	result   model.Insight
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, summaries []model.HabitSummary) (model.Insight, error) {
	f.calls++
	f.received = append(f.received, summaries)
	return f.result, f.err
}

func validInsight() model.Insight {
	return model.Insight{
		PositiveReinforcement: "great streak on reading",
		AreasForImprovement:   "running needs attention",
		MotivationalQuote:     "one day at a time",
	}
}

func TestRequestEmptyInputNoNetworkCall(t *testing.T) {
	gen := &fakeGenerator{result: validInsight()}
	svc := NewService(gen, zap.NewNop())

	_, err := svc.Request(context.Background(), 1, nil)
	assert.ErrorIs(t, err, apperr.ErrEmptyInput)
	assert.Equal(t, 0, gen.calls)
}

func TestRequestUnconfigured(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	assert.False(t, svc.Configured())

	_, err := svc.Request(context.Background(), 1, []model.Habit{{Name: "read"}})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestRequestSendsSummariesWithoutHistory(t *testing.T) {
	gen := &fakeGenerator{result: validInsight()}
	svc := NewService(gen, zap.NewNop())

	habits := []model.Habit{
		{Name: "read", Streak: 3, Completion: 30, History: []string{"2024-03-08", "2024-03-09", "2024-03-10"}},
		{Name: "run", Streak: 0, Completion: 10, History: []string{"2024-01-01"}},
	}

	ins, err := svc.Request(context.Background(), 1, habits)
	require.NoError(t, err)
	assert.Equal(t, validInsight(), ins)

	require.Len(t, gen.received, 1)
	assert.Equal(t, []model.HabitSummary{
		{Name: "read", Streak: 3, Completion: 30},
		{Name: "run", Streak: 0, Completion: 10},
	}, gen.received[0])
}

func TestRequestCachesLatest(t *testing.T) {
	gen := &fakeGenerator{result: validInsight()}
	svc := NewService(gen, zap.NewNop())

	_, _, ok := svc.Latest(1)
	assert.False(t, ok)

	_, err := svc.Request(context.Background(), 1, []model.Habit{{Name: "read"}})
	require.NoError(t, err)

	cached, at, ok := svc.Latest(1)
	require.True(t, ok)
	assert.Equal(t, validInsight(), cached)
	assert.False(t, at.IsZero())
}

func TestRequestFailureDoesNotCache(t *testing.T) {
	gen := &fakeGenerator{err: apperr.Transportf("down")}
	svc := NewService(gen, zap.NewNop())

	_, err := svc.Request(context.Background(), 1, []model.Habit{{Name: "read"}})
	assert.ErrorIs(t, err, apperr.ErrTransport)

	_, _, ok := svc.Latest(1)
	assert.False(t, ok)
}

// gatedGenerator parks each call until the test feeds it a result, so
// responses can be resolved out of request order.
type gatedGenerator struct {
	mu    sync.Mutex
	gates []chan model.Insight
}

func (g *gatedGenerator) Generate(ctx context.Context, summaries []model.HabitSummary) (model.Insight, error) {
	gate := make(chan model.Insight, 1)
	g.mu.Lock()
	g.gates = append(g.gates, gate)
	g.mu.Unlock()
	return <-gate, nil
}

func (g *gatedGenerator) started() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.gates)
}

func (g *gatedGenerator) release(i int, ins model.Insight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[i] <- ins
}

func TestRepeatedFailuresTripBreaker(t *testing.T) {
	gen := &fakeGenerator{err: apperr.Transportf("upstream down")}
	svc := NewService(gen, zap.NewNop())
	habits := []model.Habit{{Name: "read"}}

	for i := 0; i < 5; i++ {
		_, err := svc.Request(context.Background(), 1, habits)
		assert.ErrorIs(t, err, apperr.ErrTransport)
	}
	require.Equal(t, 5, gen.calls)

	// Breaker is open now: the generator is no longer called.
	_, err := svc.Request(context.Background(), 1, habits)
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Equal(t, 5, gen.calls)
}

func TestStaleResponseLosesRace(t *testing.T) {
	// An older in-flight request that resolves after a newer one must not
	// overwrite the newer cached insight.
	gen := &gatedGenerator{}
	svc := NewService(gen, zap.NewNop())

	habits := []model.Habit{{Name: "read"}}
	old := model.Insight{
		PositiveReinforcement: "old",
		AreasForImprovement:   "old",
		MotivationalQuote:     "old",
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Request(context.Background(), 1, habits)
	}()
	require.Eventually(t, func() bool { return gen.started() == 1 }, time.Second, time.Millisecond)

	go func() {
		defer wg.Done()
		_, _ = svc.Request(context.Background(), 1, habits)
	}()
	require.Eventually(t, func() bool { return gen.started() == 2 }, time.Second, time.Millisecond)

	// Newer request resolves first, stale one afterwards.
	gen.release(1, validInsight())
	require.Eventually(t, func() bool {
		_, _, ok := svc.Latest(1)
		return ok
	}, time.Second, time.Millisecond)

	gen.release(0, old)
	wg.Wait()

	cached, _, ok := svc.Latest(1)
	require.True(t, ok)
	assert.Equal(t, validInsight(), cached)
}

func TestParseInsight(t *testing.T) {
	raw := []byte(`{
		"positiveReinforcement": "nice work on reading",
		"areasForImprovement": "try running earlier",
		"motivationalQuote": "keep going"
	}`)

	ins, err := ParseInsight(raw)
	require.NoError(t, err)
	assert.Equal(t, "nice work on reading", ins.PositiveReinforcement)
}

func TestParseInsightRejectsMissingFields(t *testing.T) {
	_, err := ParseInsight([]byte(`{"positiveReinforcement": "only one"}`))
	assert.ErrorIs(t, err, apperr.ErrSchema)
}

func TestParseInsightRejectsGarbage(t *testing.T) {
	_, err := ParseInsight([]byte(`not json`))
	assert.ErrorIs(t, err, apperr.ErrSchema)
}
