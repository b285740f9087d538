package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
	"habitflow/internal/store"
)

type HabitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{
		db:     db,
		logger: logger,
	}
}

func (r *HabitRepository) Insert(ctx context.Context, h *model.Habit) error {
	r.logger.Debug("Inserting habit",
		zap.Int("user_id", h.UserID),
		zap.String("name", h.Name),
	)

	query := `
        INSERT INTO habits (id, user_id, name, streak, history, completion, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.Exec(ctx, query,
		h.ID,
		h.UserID,
		h.Name,
		h.Streak,
		h.History,
		h.Completion,
		h.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return apperr.Transportf("insert habit")
	}

	r.logger.Info("Habit inserted successfully",
		zap.String("id", h.ID),
		zap.Int("user_id", h.UserID),
	)
	return nil
}

func (r *HabitRepository) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	r.logger.Debug("Listing habits for user", zap.Int("user_id", userID))

	query := `
        SELECT id, user_id, name, streak, history, completion, created_at
        FROM habits
        WHERE user_id = $1
        ORDER BY created_at ASC
    `

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, apperr.Transportf("list habits")
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		var h model.Habit
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.Name,
			&h.Streak,
			&h.History,
			&h.Completion,
			&h.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, apperr.Transportf("scan habit")
		}
		habits = append(habits, h)
	}

	r.logger.Debug("Listed habits",
		zap.Int("user_id", userID),
		zap.Int("count", len(habits)),
	)
	return habits, nil
}

func (r *HabitRepository) Update(ctx context.Context, userID int, habitID string, mut store.HabitMutation) error {
	var ownerID int
	err := r.db.QueryRow(ctx, `SELECT user_id FROM habits WHERE id = $1`, habitID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf("habit %s", habitID)
	}
	if err != nil {
		r.logger.Error("Failed to look up habit owner", zap.Error(err))
		return apperr.Transportf("lookup habit %s", habitID)
	}
	if ownerID != userID {
		return apperr.Permissionf("habit %s not owned by user %d", habitID, userID)
	}

	query := `
        UPDATE habits
        SET history    = COALESCE($2, history),
            streak     = COALESCE($3, streak),
            completion = COALESCE($4, completion)
        WHERE id = $1
    `
	_, err = r.db.Exec(ctx, query, habitID, mut.History, mut.Streak, mut.Completion)
	if err != nil {
		r.logger.Error("Failed to update habit",
			zap.String("id", habitID),
			zap.Error(err),
		)
		return apperr.Transportf("update habit %s", habitID)
	}

	r.logger.Debug("Habit updated", zap.String("id", habitID))
	return nil
}

func (r *HabitRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *HabitRepository) Backend() string { return "postgres" }
