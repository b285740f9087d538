package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
)

// RedisStore is the pre-migration fallback backend. Each user's habits live
// wholesale under habits_<uid> as a JSON array, read and written as a unit;
// the format round-trips losslessly and array order carries no meaning.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

func habitsKey(userID int) string { return fmt.Sprintf("habits_%d", userID) }

func (s *RedisStore) Insert(ctx context.Context, h *model.Habit) error {
	habits, err := s.loadAll(ctx, h.UserID)
	if err != nil {
		return err
	}
	habits = append(habits, *h)
	return s.saveAll(ctx, h.UserID, habits)
}

func (s *RedisStore) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	return s.loadAll(ctx, userID)
}

func (s *RedisStore) Update(ctx context.Context, userID int, habitID string, mut HabitMutation) error {
	habits, err := s.loadAll(ctx, userID)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(habits, func(h model.Habit) bool { return h.ID == habitID })
	if idx < 0 {
		// The per-user key holds only the caller's habits, so a missing id
		// is indistinguishable from someone else's habit here.
		return apperr.NotFoundf("habit %s", habitID)
	}

	applyMutation(&habits[idx], mut)
	return s.saveAll(ctx, userID, habits)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Backend() string { return "redis" }

func (s *RedisStore) loadAll(ctx context.Context, userID int) ([]model.Habit, error) {
	raw, err := s.rdb.Get(ctx, habitsKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transportf("redis get %s", habitsKey(userID))
	}
	habits, err := DecodeHabits([]byte(raw))
	if err != nil {
		s.logger.Error("Corrupt habit payload in redis",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return nil, apperr.Schemaf("decode habits for user %d", userID)
	}
	return habits, nil
}

func (s *RedisStore) saveAll(ctx context.Context, userID int, habits []model.Habit) error {
	raw, err := EncodeHabits(habits)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, habitsKey(userID), raw, 0).Err(); err != nil {
		return apperr.Transportf("redis set %s", habitsKey(userID))
	}
	return nil
}

// user accounts

type redisUser struct {
	model.User
	PasswordHash string `json:"passwordHash"`
}

func userKey(email string) string { return "user:" + email }

func (s *RedisStore) CreateUser(ctx context.Context, u *model.User) error {
	id, err := s.rdb.Incr(ctx, "user:next_id").Result()
	if err != nil {
		return apperr.Transportf("redis incr user:next_id")
	}
	u.ID = int(id)

	raw, err := json.Marshal(redisUser{User: *u, PasswordHash: u.PasswordHash})
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, userKey(u.Email), raw, 0).Result()
	if err != nil {
		return apperr.Transportf("redis setnx %s", userKey(u.Email))
	}
	if !ok {
		return fmt.Errorf("email %s already registered", u.Email)
	}
	return nil
}

func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	raw, err := s.rdb.Get(ctx, userKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.NotFoundf("user %s", email)
	}
	if err != nil {
		return nil, apperr.Transportf("redis get %s", userKey(email))
	}

	var u redisUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, apperr.Schemaf("decode user %s", email)
	}
	u.User.PasswordHash = u.PasswordHash
	return &u.User, nil
}

// EncodeHabits serializes a habit collection to the wholesale JSON array
// format shared with the pre-migration clients.
func EncodeHabits(habits []model.Habit) ([]byte, error) {
	if habits == nil {
		habits = []model.Habit{}
	}
	return json.Marshal(habits)
}

// DecodeHabits parses the wholesale JSON array format.
func DecodeHabits(raw []byte) ([]model.Habit, error) {
	var habits []model.Habit
	if err := json.Unmarshal(raw, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}
