package store

import (
	"context"

	"habitflow/internal/model"
)

// HabitMutation is a partial update; nil fields are left untouched.
type HabitMutation struct {
	History    []string
	Streak     *int
	Completion *int
}

// HabitStore is the persistence authority for habit records. Implementations
// must scope every operation to the owning user: Update returns
// apperr.ErrNotFound for an unknown id and apperr.ErrPermission when the
// record belongs to someone else.
type HabitStore interface {
	Insert(ctx context.Context, h *model.Habit) error
	ListByUser(ctx context.Context, userID int) ([]model.Habit, error)
	Update(ctx context.Context, userID int, habitID string, mut HabitMutation) error
	Ping(ctx context.Context) error
	Backend() string
}

// UserStore persists user accounts. FindByEmail returns apperr.ErrNotFound
// when no account exists.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
