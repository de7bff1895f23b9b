package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LocalCache is a device-local, non-authoritative mirror of the current identity.
type LocalCache interface {
	Load(ctx context.Context) (CachedIdentity, error)
	Save(ctx context.Context, identity CachedIdentity) error
	Clear(ctx context.Context) error
}

// CachedIdentity is the projection of a user and the non-secret wallet
// fields kept in the local cache.
type CachedIdentity struct {
	UserID      uuid.UUID     `json:"user_id"`
	ExternalID  string        `json:"external_id"`
	Email       string        `json:"email,omitempty"`
	Name        string        `json:"name"`
	Picture     *string       `json:"picture,omitempty"`
	LastLoginAt time.Time     `json:"last_login_at"`
	Wallet      WalletSummary `json:"wallet"`
	SyncedAt    time.Time     `json:"synced_at"`
	// Stale marks an identity served while the user store is unreachable.
	Stale bool `json:"-"`
}

// NewCachedIdentity projects a user and wallet summary into a cache entry.
func NewCachedIdentity(user User, wallet WalletSummary, syncedAt time.Time) CachedIdentity {
	return CachedIdentity{
		UserID:      user.ID,
		ExternalID:  user.ExternalID,
		Email:       user.Email,
		Name:        user.Name,
		Picture:     user.Picture,
		LastLoginAt: user.LastLoginAt,
		Wallet:      wallet,
		SyncedAt:    syncedAt,
	}
}
