package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/token"
)

// SessionService issues, validates and revokes opaque session tokens. Only
// the token hash is stored. Expiry is fixed at issue time.
type SessionService struct {
	store model.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionService(store model.Store, ttl time.Duration, now func() time.Time) *SessionService {
	if ttl <= 0 {
		ttl = model.SessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{store: store, ttl: ttl, now: now}
}

// Issue creates a session for userID. The returned session carries the plain
// token, which is never persisted.
func (s *SessionService) Issue(ctx context.Context, userID uuid.UUID) (model.Session, error) {
	tok, hash, err := token.GenerateSessionToken()
	if err != nil {
		return model.Session{}, fmt.Errorf("issue session token: %w", err)
	}

	now := s.now()
	session := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     tok,
		TokenHash: hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}
	return session, nil
}

// Lookup returns the live session for the presented token. Unknown and
// expired tokens fail with model.ErrSessionInvalid.
func (s *SessionService) Lookup(ctx context.Context, presented string) (model.Session, error) {
	if presented == "" {
		return model.Session{}, model.ErrSessionInvalid
	}

	hash := token.HashSessionToken(presented)
	session, err := s.store.Sessions().GetByTokenHash(ctx, hash)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, model.ErrSessionInvalid
	}
	if err != nil {
		return model.Session{}, err
	}

	if err := validateSession(session, hash, s.now()); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

// Revoke deletes the session for the presented token and returns it. found is
// false when no such session exists.
func (s *SessionService) Revoke(ctx context.Context, presented string) (session model.Session, found bool, err error) {
	if presented == "" {
		return model.Session{}, false, nil
	}

	hash := token.HashSessionToken(presented)
	session, err = s.store.Sessions().GetByTokenHash(ctx, hash)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, err
	}

	if err := s.store.Sessions().DeleteByTokenHash(ctx, hash); err != nil {
		return model.Session{}, false, err
	}
	return session, true, nil
}

// PurgeExpired removes every session that has expired.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Sessions().DeleteExpired(ctx, s.now())
}

func validateSession(session model.Session, presentedHash []byte, now time.Time) error {
	if !token.EqualHash(session.TokenHash, presentedHash) {
		return model.ErrSessionInvalid
	}
	if session.Expired(now) {
		return model.ErrSessionInvalid
	}
	return nil
}
