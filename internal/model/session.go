package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is the fixed lifetime of a session. Validation never extends it.
const SessionTTL = 30 * 24 * time.Hour

// SessionStore persists sessions by the hash of their token.
type SessionStore interface {
	Create(ctx context.Context, session Session) error
	GetByTokenHash(ctx context.Context, tokenHash []byte) (Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Session binds a user to a time-bounded bearer token.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string `json:"-"`
	TokenHash []byte `json:"-"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
