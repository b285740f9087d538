package subscription

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"habitflow/internal/model"
	"habitflow/internal/mq"
	"habitflow/internal/service/habit"
	"habitflow/pkg/logger"
	"habitflow/pkg/metrics"
)

// Hub turns habit-change notifications into full reconciled snapshots and
// fans them out to registered watchers. Each snapshot fully replaces the
// watcher's prior state, so delayed or reordered notifications at worst
// deliver a redundant snapshot, never a stale diff.
type Hub struct {
	habits *habit.Service
	logger *zap.Logger

	mu       sync.Mutex
	watchers map[int]map[chan []model.Habit]struct{}
}

func NewHub(habits *habit.Service, logger *zap.Logger) *Hub {
	return &Hub{
		habits:   habits,
		logger:   logger,
		watchers: make(map[int]map[chan []model.Habit]struct{}),
	}
}

// Watch registers a snapshot channel for a user. The current snapshot is
// delivered immediately; cancel releases the registration.
func (h *Hub) Watch(ctx context.Context, userID int) (<-chan []model.Habit, func(), error) {
	snapshot, err := h.habits.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []model.Habit, 1)
	ch <- snapshot

	h.mu.Lock()
	if h.watchers[userID] == nil {
		h.watchers[userID] = make(map[chan []model.Habit]struct{})
	}
	h.watchers[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.watchers[userID], ch)
		if len(h.watchers[userID]) == 0 {
			delete(h.watchers, userID)
		}
		h.mu.Unlock()
	}
	return ch, cancel, nil
}

// NotifyChanged implements habit.ChangeNotifier for single-process setups
// where mutations feed the hub directly.
func (h *Hub) NotifyChanged(ctx context.Context, userID int, habitID string) {
	h.deliver(ctx, userID)
}

// HandleEvent is the MQ consumer handler for habit.changed events published
// by this or any other instance.
func (h *Hub) HandleEvent(ctx context.Context, data json.RawMessage) error {
	var payload mq.HabitChangedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Malformed event: drop it, requeueing cannot help.
		h.logger.Error("Dropping malformed habit.changed event", zap.Error(err))
		return nil
	}
	h.deliver(ctx, payload.UserID)
	return nil
}

func (h *Hub) deliver(ctx context.Context, userID int) {
	snapshot, err := h.habits.List(ctx, userID)
	if err != nil {
		logger.WithTrace(ctx, h.logger).Error("Failed to load snapshot for watchers",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return
	}

	h.mu.Lock()
	for ch := range h.watchers[userID] {
		// Buffered size 1: replace a pending undelivered snapshot with the
		// newer one instead of blocking.
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
		metrics.SnapshotDeliveredCount.Inc()
	}
	h.mu.Unlock()

	// Background write-back of gap corrections, detached from the read path.
	go h.habits.Repair(context.WithoutCancel(ctx), userID)
}
