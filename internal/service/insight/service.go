package insight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
	"habitflow/pkg/circuitbreaker"
	"habitflow/pkg/metrics"
)

// Generator is the external text-generation collaborator. It receives only
// habit summaries, never raw history.
type Generator interface {
	Generate(ctx context.Context, summaries []model.HabitSummary) (model.Insight, error)
}

type cached struct {
	token   uint64
	insight model.Insight
	at      time.Time
}

// Service guards the generator call and caches each user's latest insight.
// Requests carry a monotonic token; a slow response that loses the race is
// returned to its caller but never overwrites a newer cached insight.
type Service struct {
	gen     Generator // nil when the collaborator is unconfigured
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger

	seq    atomic.Uint64
	mu     sync.Mutex
	latest map[int]cached
}

func NewService(gen Generator, logger *zap.Logger) *Service {
	return &Service{
		gen:     gen,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
		latest:  make(map[int]cached),
	}
}

func (s *Service) Configured() bool { return s.gen != nil }

// Request summarizes the given habits and asks the generator for coaching
// feedback. Zero habits fail fast without any network call.
func (s *Service) Request(ctx context.Context, userID int, habits []model.Habit) (model.Insight, error) {
	if s.gen == nil {
		return model.Insight{}, apperr.Configurationf("insight generator")
	}
	if len(habits) == 0 {
		return model.Insight{}, apperr.ErrEmptyInput
	}

	token := s.seq.Add(1)

	summaries := make([]model.HabitSummary, 0, len(habits))
	for _, h := range habits {
		summaries = append(summaries, model.HabitSummary{
			Name:       h.Name,
			Streak:     h.Streak,
			Completion: h.Completion,
		})
	}

	start := time.Now()
	var insight model.Insight
	err := s.breaker.Execute(func() error {
		var genErr error
		insight, genErr = s.gen.Generate(ctx, summaries)
		return genErr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			err = apperr.Transportf("insight generator unavailable")
		}
		metrics.RecordInsightCallLatency("error", time.Since(start))
		s.logger.Error("Insight generation failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return model.Insight{}, err
	}
	metrics.RecordInsightCallLatency("ok", time.Since(start))

	s.mu.Lock()
	if prev, ok := s.latest[userID]; !ok || token > prev.token {
		s.latest[userID] = cached{token: token, insight: insight, at: time.Now()}
	}
	s.mu.Unlock()

	return insight, nil
}

// Latest returns the most recent insight produced for a user, if any.
func (s *Service) Latest(userID int) (model.Insight, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.latest[userID]
	return c.insight, c.at, ok
}
