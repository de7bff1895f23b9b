package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nhangara/identity-server/internal/model"
)

var _ model.ProgressStore = (*ProgressRepository)(nil)

const progressColumns = `user_id, level, experience, seeds, welcome_video_seen, created_at, updated_at`

type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func scanProgress(row pgx.Row) (model.Progress, error) {
	var p model.Progress
	err := row.Scan(&p.UserID, &p.Level, &p.Experience, &p.Seeds, &p.WelcomeVideoSeen, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProgressRepository) Create(ctx context.Context, p model.Progress) (model.Progress, error) {
	query := `INSERT INTO progress (` + progressColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (user_id) DO NOTHING
			  RETURNING ` + progressColumns

	saved, err := scanProgress(r.db.QueryRow(ctx, query,
		p.UserID, p.Level, p.Experience, p.Seeds, p.WelcomeVideoSeen, p.CreatedAt, p.UpdatedAt,
	))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Progress{}, fmt.Errorf("failed to create progress: %w", err)
	}
	return r.GetByUserID(ctx, p.UserID)
}

func (r *ProgressRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (model.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = $1`

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Progress{}, model.ErrNotFound
		}
		return model.Progress{}, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// Apply adds the increments in a single statement; level only moves up.
func (r *ProgressRepository) Apply(ctx context.Context, userID uuid.UUID, event model.ProgressEvent, at time.Time) (model.Progress, error) {
	query := `UPDATE progress
			  SET experience = experience + $2, seeds = seeds + $3, level = GREATEST(level, $4), updated_at = $5
			  WHERE user_id = $1
			  RETURNING ` + progressColumns

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, event.Experience, event.Seeds, event.Level, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Progress{}, model.ErrNotFound
		}
		return model.Progress{}, fmt.Errorf("failed to apply progress event: %w", err)
	}
	return p, nil
}

func (r *ProgressRepository) MarkWelcomeVideoSeen(ctx context.Context, userID uuid.UUID, at time.Time) (model.Progress, error) {
	query := `UPDATE progress SET welcome_video_seen = TRUE, updated_at = $2
			  WHERE user_id = $1
			  RETURNING ` + progressColumns

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Progress{}, model.ErrNotFound
		}
		return model.Progress{}, fmt.Errorf("failed to mark welcome video seen: %w", err)
	}
	return p, nil
}
