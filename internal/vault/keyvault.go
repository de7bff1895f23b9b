// Package vault provisions ledger wallets and keeps custody of their keys.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/config"
	"github.com/nhangara/identity-server/internal/ledger"
	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/metrics"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/secrets"
)

// Provisioning outcomes reported to metrics.
const (
	OutcomeCreated           = "created"
	OutcomeExisting          = "existing"
	OutcomeSecretsInvalid    = "secrets_invalid"
	OutcomeInProgress        = "in_progress"
	OutcomeLedgerUnavailable = "ledger_unavailable"
	OutcomeOrphaned          = "orphaned"
	OutcomeStoreFailed       = "store_failed"
)

var errWalletConflict = errors.New("user already owns a different wallet")

// Config holds the provisioning parameters.
type Config struct {
	Ledger           config.Ledger
	InitialBalance   ledger.Amount
	ProvisionTimeout time.Duration
	PersistAttempts  int
	PersistBackoff   time.Duration
	ClaimTTL         time.Duration
	// SideEffectTimeout bounds claim release and orphan recording, which run
	// after the provisioning deadline may already have passed.
	SideEffectTimeout time.Duration
}

// KeyVault generates wallet keys locally, asks the ledger to create the
// account and persists the wallet with its sealed private key.
type KeyVault struct {
	cfg      Config
	ledger   ledger.Client
	store    model.Store
	journal  model.OrphanJournal
	sealer   *Sealer
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	generate func() (ledger.KeyPair, error)
}

// Option configures a KeyVault.
type Option func(*KeyVault)

func WithClock(now func() time.Time) Option {
	return func(v *KeyVault) { v.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *KeyVault) { v.metrics = m }
}

func WithKeyGenerator(generate func() (ledger.KeyPair, error)) Option {
	return func(v *KeyVault) { v.generate = generate }
}

func New(
	cfg Config,
	client ledger.Client,
	store model.Store,
	journal model.OrphanJournal,
	sealer *Sealer,
	logger *logger.Logger,
	opts ...Option,
) *KeyVault {
	if cfg.ProvisionTimeout <= 0 {
		cfg.ProvisionTimeout = 20 * time.Second
	}
	if cfg.PersistAttempts <= 0 {
		cfg.PersistAttempts = 3
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = time.Minute
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 5 * time.Second
	}
	// The ledger call and the persist retries each run under ProvisionTimeout.
	// A claim expiring before both end lets a second provisioner in.
	if window := ProvisioningWindow(cfg); cfg.ClaimTTL < window {
		logger.Warn("Key vault: claim TTL shorter than the provisioning window, raising it",
			"claim_ttl", cfg.ClaimTTL, "window", window)
		cfg.ClaimTTL = window
	}

	v := &KeyVault{
		cfg:      cfg,
		ledger:   client,
		store:    store,
		journal:  journal,
		sealer:   sealer,
		logger:   logger,
		now:      time.Now,
		generate: ledger.GenerateKeyPair,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ProvisioningWindow is the longest a provisioning attempt can hold its claim.
func ProvisioningWindow(cfg Config) time.Duration {
	return 2*cfg.ProvisionTimeout + cfg.SideEffectTimeout
}

// ProvisionWallet returns the user's wallet, creating the ledger account when
// none exists. Failures before the ledger answers leave no state behind. Once
// the ledger has created an account it is either persisted or journaled.
func (v *KeyVault) ProvisionWallet(ctx context.Context, userID uuid.UUID) (model.Wallet, error) {
	if err := secrets.AssertReady(v.cfg.Ledger); err != nil {
		v.metrics.Provisioning(OutcomeSecretsInvalid)
		return model.Wallet{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.ProvisionTimeout)
	defer cancel()

	existing, err := v.store.Wallets().GetByUserID(ctx, userID)
	if err == nil {
		v.metrics.Provisioning(OutcomeExisting)
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		v.metrics.Provisioning(OutcomeStoreFailed)
		return model.Wallet{}, fmt.Errorf("failed to look up wallet: %w", err)
	}

	now := v.now()
	claim := model.WalletClaim{
		UserID:    userID,
		Token:     uuid.New(),
		ClaimedAt: now,
		ExpiresAt: now.Add(v.cfg.ClaimTTL),
	}
	claimed, err := v.store.Wallets().Claim(ctx, claim)
	if err != nil {
		v.metrics.Provisioning(OutcomeStoreFailed)
		return model.Wallet{}, fmt.Errorf("failed to claim wallet provisioning: %w", err)
	}
	if !claimed {
		v.metrics.Provisioning(OutcomeInProgress)
		return model.Wallet{}, model.ErrProvisioningInProgress
	}

	// A concurrent provisioning may have finished between the lookup and the claim.
	existing, err = v.store.Wallets().GetByUserID(ctx, userID)
	if err == nil {
		v.releaseClaim(ctx, claim)
		v.metrics.Provisioning(OutcomeExisting)
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		v.releaseClaim(ctx, claim)
		v.metrics.Provisioning(OutcomeStoreFailed)
		return model.Wallet{}, fmt.Errorf("failed to look up wallet: %w", err)
	}

	keys, err := v.generate()
	if err != nil {
		v.releaseClaim(ctx, claim)
		return model.Wallet{}, fmt.Errorf("failed to generate key pair: %w", err)
	}
	sealed, err := v.sealer.Seal([]byte(keys.PrivateKey), userID[:])
	if err != nil {
		v.releaseClaim(ctx, claim)
		return model.Wallet{}, fmt.Errorf("failed to seal private key: %w", err)
	}

	v.logger.Debug("Key vault: creating ledger account", "user_id", userID, "public_key", keys.PublicKey)
	accountID, err := v.ledger.CreateAccount(ctx, keys.PublicKey, v.cfg.InitialBalance)
	if err != nil {
		// Only a rejection or a call that never left the process proves no
		// account exists. Any other failure may have left a funded account.
		if !errors.Is(err, ledger.ErrRejected) && !errors.Is(err, ledger.ErrNotSubmitted) {
			orphan := model.OrphanAccount{
				UserID:           userID,
				PublicKey:        keys.PublicKey,
				SealedPrivateKey: sealed,
				Reason:           model.OrphanOutcomeUnknown,
				Cause:            err.Error(),
			}
			var unknown *ledger.OutcomeUnknownError
			if errors.As(err, &unknown) {
				orphan.TransactionID = unknown.TransactionID
			}
			v.recordOrphan(ctx, orphan)
		}
		v.releaseClaim(ctx, claim)
		v.metrics.Provisioning(OutcomeLedgerUnavailable)
		return model.Wallet{}, fmt.Errorf("%w: %w", model.ErrLedgerUnavailable, err)
	}

	wallet := model.Wallet{
		ID:         uuid.New(),
		UserID:     userID,
		AccountID:  accountID,
		PrivateKey: sealed,
		PublicKey:  keys.PublicKey,
		// The account starts with the funded amount; refreshed on wallet queries.
		BalanceTinybar: int64(v.cfg.InitialBalance),
		CreatedAt:      v.now(),
	}

	saved, err := v.persist(ctx, claim, wallet)
	if err != nil {
		v.recordOrphan(ctx, model.OrphanAccount{
			UserID:           userID,
			AccountID:        accountID,
			PublicKey:        keys.PublicKey,
			SealedPrivateKey: sealed,
			Reason:           model.OrphanPersistFailed,
			Cause:            err.Error(),
		})
		v.releaseClaim(ctx, claim)
		v.metrics.Provisioning(OutcomeOrphaned)
		return model.Wallet{}, fmt.Errorf("%w: account %s: %w", model.ErrAccountOrphaned, accountID, err)
	}

	v.logger.Info("Key vault: wallet provisioned", "user_id", userID, "account_id", accountID)
	v.metrics.Provisioning(OutcomeCreated)
	return saved, nil
}

// persist stores the wallet and drops the claim in one transaction, retrying
// with the same account id so a retry never creates a second ledger account.
func (v *KeyVault) persist(ctx context.Context, claim model.WalletClaim, wallet model.Wallet) (model.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.cfg.ProvisionTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= v.cfg.PersistAttempts; attempt++ {
		var saved model.Wallet
		err := v.store.WithinTx(ctx, func(tx model.Store) error {
			w, created, err := tx.Wallets().Create(ctx, wallet)
			if err != nil {
				return err
			}
			if !created && w.AccountID != wallet.AccountID {
				return fmt.Errorf("%w: %s", errWalletConflict, w.AccountID)
			}
			saved = w
			return tx.Wallets().ReleaseClaim(ctx, claim.UserID, claim.Token)
		})
		if err == nil {
			return saved, nil
		}
		lastErr = err
		if errors.Is(err, errWalletConflict) {
			break
		}

		v.logger.Warn("Key vault: failed to persist wallet, retrying",
			"user_id", wallet.UserID, "account_id", wallet.AccountID, "attempt", attempt, "error", err)
		if attempt < v.cfg.PersistAttempts {
			select {
			case <-ctx.Done():
				return model.Wallet{}, fmt.Errorf("%w (last error: %w)", ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * v.cfg.PersistBackoff):
			}
		}
	}
	return model.Wallet{}, lastErr
}

func (v *KeyVault) releaseClaim(ctx context.Context, claim model.WalletClaim) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.cfg.SideEffectTimeout)
	defer cancel()

	if err := v.store.Wallets().ReleaseClaim(ctx, claim.UserID, claim.Token); err != nil {
		v.logger.Warn("Key vault: failed to release provisioning claim, it will expire",
			"user_id", claim.UserID, "expires_at", claim.ExpiresAt, "error", err)
	}
}

// recordOrphan writes the account to the journal. When the journal is not
// reachable either, the log line is the last record of the account.
func (v *KeyVault) recordOrphan(ctx context.Context, orphan model.OrphanAccount) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.cfg.SideEffectTimeout)
	defer cancel()

	orphan.RecordedAt = v.now()
	v.metrics.Orphan()

	if v.journal != nil {
		key, err := v.journal.Record(ctx, orphan)
		if err == nil {
			v.logger.Error("Key vault: ledger account needs reconciliation",
				"user_id", orphan.UserID,
				"account_id", orphan.AccountID,
				"transaction_id", orphan.TransactionID,
				"reason", orphan.Reason,
				"journal_key", key)
			return
		}
		v.logger.Error("Key vault: failed to journal orphaned account", "error", err)
	}

	v.logger.Error("Key vault: ledger account needs reconciliation, not journaled",
		"user_id", orphan.UserID,
		"account_id", orphan.AccountID,
		"transaction_id", orphan.TransactionID,
		"public_key", orphan.PublicKey,
		"reason", orphan.Reason,
		"cause", orphan.Cause)
}

// Transfer sends amount from the wallet's account to another account, signed
// with the wallet's key. The transaction is submitted at most once.
func (v *KeyVault) Transfer(ctx context.Context, wallet model.Wallet, to string, amount ledger.Amount) (ledger.Receipt, error) {
	if err := secrets.AssertReady(v.cfg.Ledger); err != nil {
		return ledger.Receipt{}, err
	}
	key, err := v.openPrivateKey(wallet)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("failed to open wallet key: %w", err)
	}

	receipt, err := v.ledger.Transfer(ctx, ledger.TransferRequest{
		From:      wallet.AccountID,
		To:        to,
		Amount:    amount,
		Memo:      ledger.TransferMemo,
		SignerKey: key,
	})
	if errors.Is(err, ledger.ErrRejected) {
		return ledger.Receipt{}, fmt.Errorf("%w: %w", model.ErrTransferRejected, err)
	}
	if err != nil {
		var unknown *ledger.OutcomeUnknownError
		if errors.As(err, &unknown) {
			v.logger.Error("Key vault: transfer outcome unknown",
				"user_id", wallet.UserID,
				"from", wallet.AccountID,
				"to", to,
				"transaction_id", unknown.TransactionID)
		}
		return ledger.Receipt{}, fmt.Errorf("%w: %w", model.ErrLedgerUnavailable, err)
	}
	return receipt, nil
}

// openPrivateKey unseals the wallet's private key.
func (v *KeyVault) openPrivateKey(wallet model.Wallet) (string, error) {
	key, err := v.sealer.Open(wallet.PrivateKey, wallet.UserID[:])
	if err != nil {
		return "", err
	}
	return string(key), nil
}
