package mq

import "time"

// HabitChangedPayload announces that a user's habit collection changed and
// watchers should reload. The payload carries no habit data; each snapshot
// is re-read from the store.
type HabitChangedPayload struct {
	UserID    int       `json:"user_id"`
	HabitID   string    `json:"habit_id,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
