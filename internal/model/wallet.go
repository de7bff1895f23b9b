package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WalletStore defines persistence operations for wallets and provisioning claims.
type WalletStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (Wallet, error)
	// Create inserts the wallet or returns the one already owned by the user.
	Create(ctx context.Context, wallet Wallet) (saved Wallet, created bool, err error)
	UpdateBalance(ctx context.Context, userID uuid.UUID, balance int64, refreshedAt time.Time) error
	// Claim takes the provisioning lease for claim.UserID. It reports false
	// when another unexpired claim holds it.
	Claim(ctx context.Context, claim WalletClaim) (bool, error)
	ReleaseClaim(ctx context.Context, userID, token uuid.UUID) error
}

// Wallet is a ledger account owned by exactly one user.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	AccountID string
	// PrivateKey holds the sealed private key. It never leaves the vault and
	// the persistence layer.
	PrivateKey         []byte `json:"-"`
	PublicKey          string
	BalanceTinybar     int64
	BalanceRefreshedAt *time.Time
	CreatedAt          time.Time
}

// Summary returns the client-visible projection of the wallet.
func (w Wallet) Summary() WalletSummary {
	return WalletSummary{
		AccountID:      w.AccountID,
		PublicKey:      w.PublicKey,
		BalanceTinybar: w.BalanceTinybar,
	}
}

// WalletSummary is the wallet view returned to clients and mirrored locally.
type WalletSummary struct {
	AccountID      string `json:"account_id,omitempty"`
	PublicKey      string `json:"public_key,omitempty"`
	BalanceTinybar int64  `json:"balance_tinybar"`
	Pending        bool   `json:"pending"`
}

// WalletClaim is a provisioning lease held while a ledger account is being created.
type WalletClaim struct {
	UserID    uuid.UUID
	Token     uuid.UUID
	ClaimedAt time.Time
	ExpiresAt time.Time
}
