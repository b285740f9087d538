package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
)

// MemoryStore keeps everything in process memory. It backs the explicitly
// unconfigured deployment mode and tests; data does not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	habits map[string]model.Habit
	users  map[string]model.User
	nextID int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		habits: make(map[string]model.Habit),
		users:  make(map[string]model.User),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, h *model.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits[h.ID] = cloneHabit(*h)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var habits []model.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			habits = append(habits, cloneHabit(h))
		}
	}
	slices.SortFunc(habits, func(a, b model.Habit) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return habits, nil
}

func (s *MemoryStore) Update(ctx context.Context, userID int, habitID string, mut HabitMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.habits[habitID]
	if !ok {
		return apperr.NotFoundf("habit %s", habitID)
	}
	if h.UserID != userID {
		return apperr.Permissionf("habit %s not owned by user %d", habitID, userID)
	}

	applyMutation(&h, mut)
	s.habits[habitID] = h
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Backend() string { return "memory" }

func (s *MemoryStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Email]; exists {
		return fmt.Errorf("email %s already registered", u.Email)
	}
	s.nextID++
	u.ID = s.nextID
	s.users[u.Email] = *u
	return nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, apperr.NotFoundf("user %s", email)
	}
	return &u, nil
}

func applyMutation(h *model.Habit, mut HabitMutation) {
	if mut.History != nil {
		h.History = slices.Clone(mut.History)
	}
	if mut.Streak != nil {
		h.Streak = *mut.Streak
	}
	if mut.Completion != nil {
		h.Completion = *mut.Completion
	}
}

func cloneHabit(h model.Habit) model.Habit {
	h.History = slices.Clone(h.History)
	return h
}
