package habit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
	"habitflow/internal/store"
	"habitflow/internal/streak"
	"habitflow/internal/util"
	"habitflow/pkg/logger"
	"habitflow/pkg/metrics"
)

// ChangeNotifier is told after every successful mutation so that live
// subscriptions can push a fresh snapshot. Notification is best-effort.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, userID int, habitID string)
}

type Service struct {
	store    store.HabitStore
	deduper  *util.Deduper
	notifier ChangeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(habitStore store.HabitStore, deduper *util.Deduper, logger *zap.Logger) *Service {
	return &Service{
		store:   habitStore,
		deduper: deduper,
		logger:  logger,
		now:     time.Now,
	}
}

// SetNotifier wires the change feed. Done after construction because the
// subscription hub needs the service to load snapshots.
func (s *Service) SetNotifier(n ChangeNotifier) { s.notifier = n }

// SetClock overrides the reference "today" source. Tests use this to make
// streak behavior deterministic.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) today() string {
	return s.now().UTC().Format(streak.DateLayout)
}

// Create adds a habit with zeroed derived state for the given owner.
func (s *Service) Create(ctx context.Context, userID int, name string) (model.Habit, error) {
	if userID <= 0 {
		return model.Habit{}, apperr.Permissionf("create habit without owner")
	}
	if name == "" {
		return model.Habit{}, apperr.ErrEmptyInput
	}

	h := model.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		History:   []string{},
		CreatedAt: s.now().UTC(),
	}

	start := time.Now()
	if err := s.store.Insert(ctx, &h); err != nil {
		return model.Habit{}, err
	}
	metrics.RecordStoreOpDuration("insert", s.store.Backend(), time.Since(start))

	s.notifyChanged(ctx, userID, h.ID)
	return h, nil
}

// List returns the owner's habits with derived fields recomputed against
// today. Records with corrupt histories are skipped, not fatal: one bad row
// must not take down the whole list.
func (s *Service) List(ctx context.Context, userID int) ([]model.Habit, error) {
	start := time.Now()
	habits, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	metrics.RecordStoreOpDuration("list", s.store.Backend(), time.Since(start))

	today := s.today()
	out := make([]model.Habit, 0, len(habits))
	log := logger.WithTrace(ctx, s.logger)
	for _, h := range habits {
		if err := streak.ValidateHistory(h.History); err != nil {
			log.Error("Skipping habit with corrupt history",
				zap.String("id", h.ID),
				zap.Int("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		h.Streak, h.CompletedToday = streak.Reconcile(h.History, today)
		out = append(out, h)
	}
	return out, nil
}

// Track records today's completion for one habit. Idempotent within a day:
// tracking an already-completed habit changes nothing and is not an error.
func (s *Service) Track(ctx context.Context, userID int, habitID string) (model.Habit, error) {
	habits, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return model.Habit{}, err
	}

	var found *model.Habit
	for i := range habits {
		if habits[i].ID == habitID {
			found = &habits[i]
			break
		}
	}
	if found == nil {
		return model.Habit{}, apperr.NotFoundf("habit %s", habitID)
	}
	if err := streak.ValidateHistory(found.History); err != nil {
		return model.Habit{}, apperr.Configurationf("habit %s history corrupt", habitID)
	}

	today := s.today()
	updated, changed := streak.MarkDone(*found, today)
	if !changed {
		metrics.IncrementHabitsTracked("noop")
		return updated, nil
	}

	start := time.Now()
	err = s.store.Update(ctx, userID, habitID, store.HabitMutation{
		History:    updated.History,
		Streak:     &updated.Streak,
		Completion: &updated.Completion,
	})
	if err != nil {
		return model.Habit{}, err
	}
	metrics.RecordStoreOpDuration("update", s.store.Backend(), time.Since(start))
	metrics.IncrementHabitsTracked("tracked")

	logger.WithTrace(ctx, s.logger).Info("Habit tracked",
		zap.String("id", habitID),
		zap.Int("user_id", userID),
		zap.Int("streak", updated.Streak),
	)

	s.notifyChanged(ctx, userID, habitID)
	return updated, nil
}

// Repair writes back a streak of 0 for every habit whose persisted streak no
// longer matches its history. Idempotent and best-effort: it runs after a
// snapshot delivery, is skipped under contention via the deduper, and its
// failures are logged rather than surfaced. Reads the raw store directly so
// the persisted streak, not the reconciled one, is compared.
func (s *Service) Repair(ctx context.Context, userID int) {
	today := s.today()
	log := logger.WithTrace(ctx, s.logger)

	if !s.deduper.AcquireOnce(ctx, userID, today) {
		metrics.IncrementStreakRepair("skipped")
		return
	}

	habits, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		log.Error("Streak repair could not load habits",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return
	}

	for _, h := range habits {
		if err := streak.ValidateHistory(h.History); err != nil {
			continue
		}
		current, _ := streak.Reconcile(h.History, today)
		if current != 0 || h.Streak == 0 {
			continue
		}

		zero := 0
		err := s.store.Update(ctx, userID, h.ID, store.HabitMutation{Streak: &zero})
		if err != nil {
			metrics.IncrementStreakRepair("failed")
			log.Error("Streak repair failed",
				zap.String("id", h.ID),
				zap.Int("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		metrics.IncrementStreakRepair("applied")
		log.Debug("Streak repaired",
			zap.String("id", h.ID),
			zap.Int("user_id", userID),
		)
	}
}

// Progress rolls habit completions up into the last 7 calendar days.
func (s *Service) Progress(ctx context.Context, userID int) ([]model.ProgressPoint, error) {
	habits, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	points := make([]model.ProgressPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		date := day.Format(streak.DateLayout)

		completed := 0
		for _, h := range habits {
			for _, d := range h.History {
				if d == date {
					completed++
					break
				}
			}
		}

		points = append(points, model.ProgressPoint{
			Date:      date,
			Day:       day.Format("Mon"),
			Completed: completed,
		})
	}
	return points, nil
}

func (s *Service) notifyChanged(ctx context.Context, userID int, habitID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyChanged(ctx, userID, habitID)
}
