package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProgressStore persists per-user game progress.
type ProgressStore interface {
	// Create inserts default progress unless the user already has a row.
	Create(ctx context.Context, progress Progress) (Progress, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (Progress, error)
	Apply(ctx context.Context, userID uuid.UUID, event ProgressEvent, at time.Time) (Progress, error)
	MarkWelcomeVideoSeen(ctx context.Context, userID uuid.UUID, at time.Time) (Progress, error)
}

// Progress is a per-user game state snapshot. Counters never decrease.
type Progress struct {
	UserID           uuid.UUID `json:"user_id"`
	Level            int       `json:"level"`
	Experience       int64     `json:"experience"`
	Seeds            int64     `json:"seeds"`
	WelcomeVideoSeen bool      `json:"welcome_video_seen"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewProgress returns the starting progress of a fresh user.
func NewProgress(userID uuid.UUID, at time.Time) Progress {
	return Progress{
		UserID:    userID,
		Level:     1,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// ProgressEvent is a gameplay update. Experience and Seeds are increments,
// Level is a new level that only applies when higher than the current one.
type ProgressEvent struct {
	Experience int64 `json:"experience"`
	Seeds      int64 `json:"seeds"`
	Level      int   `json:"level"`
}

// Validate rejects events that would decrease a counter.
func (e ProgressEvent) Validate() error {
	if e.Experience < 0 || e.Seeds < 0 || e.Level < 0 {
		return ErrInvalidProgress
	}
	return nil
}

// ApplyTo returns p updated by the event.
func (e ProgressEvent) ApplyTo(p Progress, at time.Time) Progress {
	p.Experience += e.Experience
	p.Seeds += e.Seeds
	if e.Level > p.Level {
		p.Level = e.Level
	}
	p.UpdatedAt = at
	return p
}
