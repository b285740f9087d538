package subscription

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habitflow/internal/mq"
	"habitflow/pkg/logger"
)

// MQNotifier publishes habit.changed events so every instance's hub, not
// just the local one, re-delivers snapshots. Publish failures are logged;
// the mutation has already been persisted and must not be rolled back over
// a notification problem.
type MQNotifier struct {
	publisher *mq.Publisher
	logger    *zap.Logger
}

func NewMQNotifier(publisher *mq.Publisher, logger *zap.Logger) *MQNotifier {
	return &MQNotifier{publisher: publisher, logger: logger}
}

func (n *MQNotifier) NotifyChanged(ctx context.Context, userID int, habitID string) {
	err := n.publisher.Publish(mq.RouteHabitChanged, mq.HabitChangedPayload{
		UserID:    userID,
		HabitID:   habitID,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.WithTrace(ctx, n.logger).Error("Failed to publish habit.changed",
			zap.Int("user_id", userID),
			zap.String("habit_id", habitID),
			zap.Error(err),
		)
	}
}
