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

var _ model.WalletStore = (*WalletRepository)(nil)

const walletColumns = `id, user_id, account_id, private_key, public_key, balance_tinybar, balance_refreshed_at, created_at`

type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{
		db: db,
	}
}

func scanWallet(row pgx.Row) (model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.ID, &w.UserID, &w.AccountID, &w.PrivateKey, &w.PublicKey,
		&w.BalanceTinybar, &w.BalanceRefreshedAt, &w.CreatedAt,
	)
	return w, err
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	w, err := scanWallet(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Wallet{}, model.ErrNotFound
		}
		return model.Wallet{}, fmt.Errorf("failed to get wallet by user id: %w", err)
	}

	return w, nil
}

// Create inserts the wallet unless the user already owns one. A clash on
// account_id means the ledger handed out an id that is already stored and is
// reported as an error.
func (r *WalletRepository) Create(ctx context.Context, wallet model.Wallet) (model.Wallet, bool, error) {
	query := `INSERT INTO wallets (` + walletColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (user_id) DO NOTHING
			  RETURNING ` + walletColumns

	saved, err := scanWallet(r.db.QueryRow(ctx, query,
		wallet.ID, wallet.UserID, wallet.AccountID, wallet.PrivateKey, wallet.PublicKey,
		wallet.BalanceTinybar, wallet.BalanceRefreshedAt, wallet.CreatedAt,
	))
	if err == nil {
		return saved, true, nil
	}
	if isUniqueViolation(err) {
		return model.Wallet{}, false, fmt.Errorf("ledger account %s already stored: %w", wallet.AccountID, err)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Wallet{}, false, fmt.Errorf("failed to create wallet: %w", err)
	}

	existing, err := r.GetByUserID(ctx, wallet.UserID)
	if err != nil {
		return model.Wallet{}, false, fmt.Errorf("failed to fetch existing wallet: %w", err)
	}
	return existing, false, nil
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, userID uuid.UUID, balance int64, refreshedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE wallets SET balance_tinybar = $2, balance_refreshed_at = $3 WHERE user_id = $1`,
		userID, balance, refreshedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Claim takes over an existing claim only once it has expired.
func (r *WalletRepository) Claim(ctx context.Context, claim model.WalletClaim) (bool, error) {
	query := `INSERT INTO wallet_claims (user_id, token, claimed_at, expires_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (user_id) DO UPDATE
			  SET token = EXCLUDED.token, claimed_at = EXCLUDED.claimed_at, expires_at = EXCLUDED.expires_at
			  WHERE wallet_claims.expires_at <= EXCLUDED.claimed_at
			  RETURNING token`

	var token uuid.UUID
	err := r.db.QueryRow(ctx, query, claim.UserID, claim.Token, claim.ClaimedAt, claim.ExpiresAt).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim wallet provisioning: %w", err)
	}
	return token == claim.Token, nil
}

func (r *WalletRepository) ReleaseClaim(ctx context.Context, userID, token uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM wallet_claims WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to release wallet claim: %w", err)
	}
	return nil
}
