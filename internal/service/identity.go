package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/ledger"
	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/metrics"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/secrets"
)

const maxExternalIDLength = 320

// Login results reported to metrics.
const (
	loginSuccess          = "success"
	loginPendingWallet    = "pending_wallet"
	loginInvalid          = "invalid_identity"
	loginDisabled         = "disabled"
	loginStoreUnavailable = "store_unavailable"
	loginFailed           = "error"
)

// Errors that describe the request or the domain state rather than a store
// outage. They are returned as is.
var domainErrors = []error{
	model.ErrNotFound,
	model.ErrInvalidIdentity,
	model.ErrSecretsInvalid,
	model.ErrLedgerUnavailable,
	model.ErrSessionInvalid,
	model.ErrStoreUnavailable,
	model.ErrAccountDisabled,
	model.ErrProvisioningInProgress,
	model.ErrWalletPending,
	model.ErrAccountOrphaned,
	model.ErrInvalidProgress,
	model.ErrInvalidTransfer,
	model.ErrTransferRejected,
}

// WalletVault creates ledger wallets and signs with their keys.
type WalletVault interface {
	ProvisionWallet(ctx context.Context, userID uuid.UUID) (model.Wallet, error)
	Transfer(ctx context.Context, wallet model.Wallet, to string, amount ledger.Amount) (ledger.Receipt, error)
}

// IdentityConfig bounds the external calls made by the identity service.
type IdentityConfig struct {
	SessionTTL    time.Duration
	StoreTimeout  time.Duration
	LedgerTimeout time.Duration
	CacheTimeout  time.Duration
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	User    model.User
	Session model.Session
	Wallet  model.WalletSummary
}

// WalletBalance is the live hbar balance of a wallet.
type WalletBalance struct {
	AccountID      string
	BalanceTinybar int64
	RefreshedAt    time.Time
}

// WalletView is the live ledger state of a wallet.
type WalletView struct {
	model.WalletSummary
	Tokens      []ledger.TokenHolding
	RefreshedAt time.Time
}

// Identity maps external identities to users, wallets and sessions and keeps
// the local cache in line with the user store.
type Identity struct {
	cfg      IdentityConfig
	store    model.Store
	vault    WalletVault
	ledger   ledger.Client
	sessions *SessionService
	cache    model.LocalCache
	verifier model.AssertionVerifier
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	stale    atomic.Bool
}

// IdentityOption configures an Identity service.
type IdentityOption func(*Identity)

func WithClock(now func() time.Time) IdentityOption {
	return func(s *Identity) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) IdentityOption {
	return func(s *Identity) { s.metrics = m }
}

// WithLocalCache enables mirroring the current identity into cache.
func WithLocalCache(cache model.LocalCache) IdentityOption {
	return func(s *Identity) { s.cache = cache }
}

// WithAssertionVerifier makes login accept signed assertions only.
func WithAssertionVerifier(v model.AssertionVerifier) IdentityOption {
	return func(s *Identity) { s.verifier = v }
}

func NewIdentity(
	cfg IdentityConfig,
	store model.Store,
	vault WalletVault,
	ledgerClient ledger.Client,
	logger *logger.Logger,
	opts ...IdentityOption,
) *Identity {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = model.SessionTTL
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 10 * time.Second
	}
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = 2 * time.Second
	}

	s := &Identity{
		cfg:    cfg,
		store:  store,
		vault:  vault,
		ledger: ledgerClient,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = NewSessionService(store, cfg.SessionTTL, func() time.Time { return s.now() })
	return s
}

// Login authenticates an unsigned assertion. It is rejected when signed
// assertions are required.
func (s *Identity) Login(ctx context.Context, assertion model.IdentityAssertion) (LoginResult, error) {
	if s.verifier != nil {
		s.metrics.Login(loginInvalid)
		return LoginResult{}, fmt.Errorf("%w: a signed assertion is required", model.ErrInvalidIdentity)
	}
	return s.login(ctx, assertion)
}

// LoginSigned verifies a signed assertion and logs its subject in.
func (s *Identity) LoginSigned(ctx context.Context, signed string) (LoginResult, error) {
	if s.verifier == nil {
		s.metrics.Login(loginInvalid)
		return LoginResult{}, fmt.Errorf("%w: signed assertions are not configured", model.ErrInvalidIdentity)
	}
	assertion, err := s.verifier.Verify(signed)
	if err != nil {
		s.logger.Info("Identity service: rejected signed assertion", "error", err)
		s.metrics.Login(loginInvalid)
		return LoginResult{}, err
	}
	return s.login(ctx, assertion)
}

func (s *Identity) login(ctx context.Context, assertion model.IdentityAssertion) (LoginResult, error) {
	assertion, err := normalizeAssertion(assertion)
	if err != nil {
		s.metrics.Login(loginInvalid)
		return LoginResult{}, err
	}

	s.logger.Debug("Identity service: login started", "external_id", assertion.ExternalID)

	if err := s.ensureStore(ctx); err != nil {
		s.metrics.Login(loginStoreUnavailable)
		return LoginResult{}, err
	}

	user, err := s.upsertUser(ctx, assertion)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAccountDisabled):
			s.logger.Info("Identity service: login refused for deactivated user", "external_id", assertion.ExternalID)
			s.metrics.Login(loginDisabled)
		case errors.Is(err, model.ErrStoreUnavailable):
			s.metrics.Login(loginStoreUnavailable)
		default:
			s.metrics.Login(loginFailed)
		}
		return LoginResult{}, err
	}

	wallet, err := s.walletForLogin(ctx, user.ID)
	if err != nil {
		s.metrics.Login(loginFailed)
		return LoginResult{}, err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	session, err := s.sessions.Issue(sctx, user.ID)
	if err != nil {
		s.logger.Error("Identity service: failed to issue session", "user_id", user.ID, "error", err)
		s.metrics.Login(loginFailed)
		return LoginResult{}, s.storeFailure(ctx, "issue session", err)
	}

	s.mirror(ctx, user, wallet)

	if wallet.Pending {
		s.metrics.Login(loginPendingWallet)
	} else {
		s.metrics.Login(loginSuccess)
	}
	s.logger.Info("Identity service: user logged in",
		"user_id", user.ID,
		"account_id", wallet.AccountID,
		"wallet_pending", wallet.Pending)

	return LoginResult{User: user, Session: session, Wallet: wallet}, nil
}

// upsertUser inserts or fetches the user, bumps the last login and makes sure
// the progress row exists, all in one transaction.
func (s *Identity) upsertUser(ctx context.Context, assertion model.IdentityAssertion) (model.User, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	now := s.now()
	candidate := model.User{
		ID:          uuid.New(),
		ExternalID:  assertion.ExternalID,
		Email:       assertion.Email,
		Name:        assertion.Name,
		CreatedAt:   now,
		LastLoginAt: now,
		IsActive:    true,
	}
	if assertion.Picture != "" {
		picture := assertion.Picture
		candidate.Picture = &picture
	}

	var user model.User
	err := s.store.WithinTx(sctx, func(tx model.Store) error {
		saved, created, err := tx.Users().Create(sctx, candidate)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if !saved.IsActive {
			return model.ErrAccountDisabled
		}
		if _, err := tx.Progress().Create(sctx, model.NewProgress(saved.ID, now)); err != nil {
			return fmt.Errorf("failed to create progress: %w", err)
		}
		if created {
			s.logger.Info("Identity service: user created", "user_id", saved.ID, "external_id", saved.ExternalID)
			user = saved
			return nil
		}

		saved.Name = candidate.Name
		if candidate.Email != "" {
			saved.Email = candidate.Email
		}
		if candidate.Picture != nil {
			saved.Picture = candidate.Picture
		}
		saved.LastLoginAt = now
		user, err = tx.Users().UpdateLogin(sctx, saved)
		if err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, s.storeFailure(ctx, "upsert user", err)
	}
	return user, nil
}

// walletForLogin returns the user's wallet, provisioning it when missing. A
// provisioning failure yields a pending wallet instead of an error.
func (s *Identity) walletForLogin(ctx context.Context, userID uuid.UUID) (model.WalletSummary, error) {
	sctx, cancel := s.storeContext(ctx)
	wallet, err := s.store.Wallets().GetByUserID(sctx, userID)
	cancel()
	if err == nil {
		return wallet.Summary(), nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.WalletSummary{}, s.storeFailure(ctx, "look up wallet", err)
	}

	wallet, err = s.vault.ProvisionWallet(ctx, userID)
	if err != nil {
		s.logger.Warn("Identity service: wallet provisioning failed, wallet left pending",
			"user_id", userID,
			"error", err)
		return model.WalletSummary{Pending: true}, nil
	}
	return wallet.Summary(), nil
}

// Logout deletes the session of the token. Unknown and expired tokens are
// not an error.
func (s *Identity) Logout(ctx context.Context, presented string) error {
	if presented == "" {
		return nil
	}
	if err := s.ensureStore(ctx); err != nil {
		return err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	session, found, err := s.sessions.Revoke(sctx, presented)
	if err != nil {
		s.logger.Error("Identity service: failed to revoke session", "error", err)
		return s.storeFailure(ctx, "revoke session", err)
	}
	if !found {
		s.logger.Debug("Identity service: logout for unknown session")
		return nil
	}

	s.forget(ctx, session.UserID)
	s.logger.Info("Identity service: user logged out", "user_id", session.UserID)
	return nil
}

// ValidateSession returns the user owning a live session. It never extends
// the session.
func (s *Identity) ValidateSession(ctx context.Context, presented string) (model.User, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	session, err := s.sessions.Lookup(sctx, presented)
	if err != nil {
		if errors.Is(err, model.ErrSessionInvalid) {
			s.metrics.SessionValidation("invalid")
			return model.User{}, err
		}
		s.metrics.SessionValidation("error")
		return model.User{}, s.storeFailure(ctx, "look up session", err)
	}

	user, err := s.store.Users().GetByID(sctx, session.UserID)
	if errors.Is(err, model.ErrNotFound) {
		s.metrics.SessionValidation("invalid")
		return model.User{}, model.ErrSessionInvalid
	}
	if err != nil {
		s.metrics.SessionValidation("error")
		return model.User{}, s.storeFailure(ctx, "look up session user", err)
	}
	if !user.IsActive {
		s.metrics.SessionValidation("invalid")
		return model.User{}, model.ErrSessionInvalid
	}

	s.metrics.SessionValidation("valid")
	return user, nil
}

// Reconcile brings the local cache in line with the user store. When the
// store cannot be reached the service enters degraded mode and keeps serving
// the cached identity marked as stale.
func (s *Identity) Reconcile(ctx context.Context) error {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.store.Ping(sctx); err != nil {
		s.stale.Store(true)
		s.metrics.Reconciliation("degraded")
		s.logger.Warn("Identity service: user store unreachable, serving local cache as stale", "error", err)
		return nil
	}
	if s.stale.CompareAndSwap(true, false) {
		s.logger.Info("Identity service: user store reachable again, leaving degraded mode")
	}

	if s.cache == nil {
		s.metrics.Reconciliation("empty")
		return nil
	}

	cctx, ccancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	cached, err := s.cache.Load(cctx)
	ccancel()
	if errors.Is(err, model.ErrNotFound) {
		s.metrics.Reconciliation("empty")
		return nil
	}
	if err != nil {
		// An unreadable mirror is replaced on the next login.
		s.logger.Warn("Identity service: failed to read local cache", "error", err)
		s.metrics.Reconciliation("error")
		return nil
	}

	user, err := s.store.Users().GetByID(sctx, cached.UserID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !user.IsActive) {
		s.forget(ctx, cached.UserID)
		s.metrics.Reconciliation("cleared")
		return nil
	}
	if err != nil {
		s.metrics.Reconciliation("error")
		return s.storeFailure(ctx, "load cached user", err)
	}

	summary := model.WalletSummary{Pending: true}
	wallet, err := s.store.Wallets().GetByUserID(sctx, user.ID)
	switch {
	case err == nil:
		summary = wallet.Summary()
	case !errors.Is(err, model.ErrNotFound):
		s.metrics.Reconciliation("error")
		return s.storeFailure(ctx, "load cached wallet", err)
	}

	s.mirror(ctx, user, summary)
	s.metrics.Reconciliation("synced")
	s.logger.Info("Identity service: local cache reconciled", "user_id", user.ID)
	return nil
}

// Stale reports whether the service runs in degraded mode.
func (s *Identity) Stale() bool {
	return s.stale.Load()
}

// CurrentIdentity returns the identity mirrored in the local cache, marked
// stale in degraded mode.
func (s *Identity) CurrentIdentity(ctx context.Context) (model.CachedIdentity, error) {
	if s.cache == nil {
		return model.CachedIdentity{}, model.ErrNotFound
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	identity, err := s.cache.Load(cctx)
	if err != nil {
		return model.CachedIdentity{}, err
	}
	identity.Stale = s.stale.Load()
	return identity, nil
}

// PurgeExpiredSessions removes expired sessions and returns how many.
func (s *Identity) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	if err := s.ensureStore(ctx); err != nil {
		return 0, err
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	n, err := s.sessions.PurgeExpired(sctx)
	if err != nil {
		return 0, s.storeFailure(ctx, "purge expired sessions", err)
	}
	if n > 0 {
		s.logger.Info("Identity service: purged expired sessions", "count", n)
	}
	return n, nil
}

// Wallet reads the user's wallet from the ledger and refreshes the cached
// balance.
func (s *Identity) Wallet(ctx context.Context, userID uuid.UUID) (WalletView, error) {
	wallet, err := s.readableWallet(ctx, userID)
	if err != nil {
		return WalletView{}, err
	}

	lctx, lcancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer lcancel()
	info, err := s.ledger.GetAccountInfo(lctx, wallet.AccountID)
	if err != nil {
		s.logger.Warn("Identity service: failed to query ledger account",
			"user_id", userID,
			"account_id", wallet.AccountID,
			"error", err)
		return WalletView{}, fmt.Errorf("%w: %w", model.ErrLedgerUnavailable, err)
	}

	now := s.cacheBalance(ctx, userID, info.Balance)
	summary := wallet.Summary()
	summary.BalanceTinybar = int64(info.Balance)
	return WalletView{WalletSummary: summary, Tokens: info.Tokens, RefreshedAt: now}, nil
}

// Balance reads the hbar balance of the user's wallet from the ledger.
func (s *Identity) Balance(ctx context.Context, userID uuid.UUID) (WalletBalance, error) {
	wallet, err := s.readableWallet(ctx, userID)
	if err != nil {
		return WalletBalance{}, err
	}

	lctx, lcancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer lcancel()
	balance, err := s.ledger.GetBalance(lctx, wallet.AccountID)
	if err != nil {
		s.logger.Warn("Identity service: failed to query ledger balance",
			"user_id", userID,
			"account_id", wallet.AccountID,
			"error", err)
		return WalletBalance{}, fmt.Errorf("%w: %w", model.ErrLedgerUnavailable, err)
	}

	now := s.cacheBalance(ctx, userID, balance)
	return WalletBalance{AccountID: wallet.AccountID, BalanceTinybar: int64(balance), RefreshedAt: now}, nil
}

// Transfer sends amount tinybars from the user's wallet to another account.
// The transfer is submitted once. A failure whose outcome is unknown is not
// retried.
func (s *Identity) Transfer(ctx context.Context, userID uuid.UUID, to string, amount ledger.Amount) (ledger.Receipt, error) {
	if amount <= 0 {
		return ledger.Receipt{}, fmt.Errorf("%w: amount must be positive", model.ErrInvalidTransfer)
	}
	if err := ledger.ValidateAccountID(to); err != nil {
		return ledger.Receipt{}, fmt.Errorf("%w: recipient: %w", model.ErrInvalidTransfer, err)
	}

	wallet, err := s.readableWallet(ctx, userID)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if wallet.AccountID == to {
		return ledger.Receipt{}, fmt.Errorf("%w: recipient is the sender", model.ErrInvalidTransfer)
	}

	lctx, lcancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer lcancel()
	receipt, err := s.vault.Transfer(lctx, wallet, to, amount)
	if err != nil {
		s.logger.Warn("Identity service: transfer failed",
			"user_id", userID,
			"from", wallet.AccountID,
			"to", to,
			"error", err)
		return ledger.Receipt{}, err
	}

	s.logger.Info("Identity service: transfer completed",
		"user_id", userID,
		"from", wallet.AccountID,
		"to", to,
		"amount_tinybar", int64(amount),
		"transaction_id", receipt.TransactionID)
	return receipt, nil
}

// readableWallet loads the user's wallet and checks its account id can be
// queried on the ledger.
func (s *Identity) readableWallet(ctx context.Context, userID uuid.UUID) (model.Wallet, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	wallet, err := s.store.Wallets().GetByUserID(sctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Wallet{}, model.ErrWalletPending
	}
	if err != nil {
		return model.Wallet{}, s.storeFailure(ctx, "look up wallet", err)
	}
	if err := secrets.AssertReadable(wallet.AccountID); err != nil {
		return model.Wallet{}, err
	}
	return wallet, nil
}

// cacheBalance stores the balance read from the ledger and returns the
// refresh time.
func (s *Identity) cacheBalance(ctx context.Context, userID uuid.UUID, balance ledger.Amount) time.Time {
	now := s.now()
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.store.Wallets().UpdateBalance(sctx, userID, int64(balance), now); err != nil {
		s.logger.Warn("Identity service: failed to cache wallet balance", "user_id", userID, "error", err)
	}
	return now
}

// RetryProvisioning provisions the wallet of a user whose login left it pending.
func (s *Identity) RetryProvisioning(ctx context.Context, userID uuid.UUID) (model.WalletSummary, error) {
	if err := s.ensureStore(ctx); err != nil {
		return model.WalletSummary{}, err
	}

	wallet, err := s.vault.ProvisionWallet(ctx, userID)
	if err != nil {
		s.logger.Warn("Identity service: wallet provisioning retry failed", "user_id", userID, "error", err)
		return model.WalletSummary{}, s.storeFailure(ctx, "provision wallet", err)
	}
	summary := wallet.Summary()

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if user, err := s.store.Users().GetByID(sctx, userID); err == nil {
		s.mirror(ctx, user, summary)
	}
	return summary, nil
}

// Progress returns the user's game progress.
func (s *Identity) Progress(ctx context.Context, userID uuid.UUID) (model.Progress, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	p, err := s.store.Progress().GetByUserID(sctx, userID)
	if err != nil {
		return model.Progress{}, s.storeFailure(ctx, "get progress", err)
	}
	return p, nil
}

// RecordProgress applies a gameplay event. Counters only grow.
func (s *Identity) RecordProgress(ctx context.Context, userID uuid.UUID, event model.ProgressEvent) (model.Progress, error) {
	if err := event.Validate(); err != nil {
		return model.Progress{}, err
	}
	return s.updateProgress(ctx, "record progress", userID, func(ctx context.Context, tx model.Store, at time.Time) (model.Progress, error) {
		return tx.Progress().Apply(ctx, userID, event, at)
	})
}

// MarkWelcomeVideoSeen sets the one-time welcome video flag.
func (s *Identity) MarkWelcomeVideoSeen(ctx context.Context, userID uuid.UUID) (model.Progress, error) {
	return s.updateProgress(ctx, "mark welcome video seen", userID, func(ctx context.Context, tx model.Store, at time.Time) (model.Progress, error) {
		return tx.Progress().MarkWelcomeVideoSeen(ctx, userID, at)
	})
}

func (s *Identity) updateProgress(
	ctx context.Context,
	op string,
	userID uuid.UUID,
	apply func(ctx context.Context, tx model.Store, at time.Time) (model.Progress, error),
) (model.Progress, error) {
	if err := s.ensureStore(ctx); err != nil {
		return model.Progress{}, err
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	var p model.Progress
	now := s.now()
	err := s.store.WithinTx(sctx, func(tx model.Store) error {
		if _, err := tx.Progress().Create(sctx, model.NewProgress(userID, now)); err != nil {
			return err
		}
		var err error
		p, err = apply(sctx, tx, now)
		return err
	})
	if err != nil {
		return model.Progress{}, s.storeFailure(ctx, op, err)
	}
	return p, nil
}

// Deactivate soft-deletes the user. Existing sessions stop validating.
func (s *Identity) Deactivate(ctx context.Context, userID uuid.UUID) error {
	if err := s.ensureStore(ctx); err != nil {
		return err
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.store.Users().Deactivate(sctx, userID); err != nil {
		return s.storeFailure(ctx, "deactivate user", err)
	}
	s.forget(ctx, userID)
	s.logger.Info("Identity service: user deactivated", "user_id", userID)
	return nil
}

func (s *Identity) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// ensureStore makes a mutating call in degraded mode reach the store first.
func (s *Identity) ensureStore(ctx context.Context) error {
	if !s.stale.Load() {
		return nil
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.store.Ping(sctx); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	if s.stale.CompareAndSwap(true, false) {
		s.logger.Info("Identity service: user store reachable again, leaving degraded mode")
	}
	return nil
}

// storeFailure classifies err. A failure the store cannot answer a ping for
// becomes model.ErrStoreUnavailable and switches to degraded mode.
func (s *Identity) storeFailure(ctx context.Context, op string, err error) error {
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			return err
		}
	}

	pctx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	if perr := s.store.Ping(pctx); perr != nil {
		if !s.stale.Swap(true) {
			s.logger.Warn("Identity service: user store unreachable, entering degraded mode", "op", op, "error", err)
		}
		return fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// mirror writes the identity into the local cache. Failures are logged only.
func (s *Identity) mirror(ctx context.Context, user model.User, wallet model.WalletSummary) {
	if s.cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	if err := s.cache.Save(cctx, model.NewCachedIdentity(user, wallet, s.now())); err != nil {
		s.logger.Warn("Identity service: failed to mirror identity into local cache", "user_id", user.ID, "error", err)
	}
}

// forget clears the local cache when it holds userID.
func (s *Identity) forget(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	cached, err := s.cache.Load(cctx)
	if err != nil || cached.UserID != userID {
		return
	}
	if err := s.cache.Clear(cctx); err != nil {
		s.logger.Warn("Identity service: failed to clear local cache", "user_id", userID, "error", err)
	}
}

// normalizeAssertion trims the assertion, rejects malformed keys and fills in
// a display name.
func normalizeAssertion(a model.IdentityAssertion) (model.IdentityAssertion, error) {
	a.ExternalID = strings.TrimSpace(a.ExternalID)
	a.Email = strings.TrimSpace(a.Email)
	a.Name = strings.TrimSpace(a.Name)
	a.Picture = strings.TrimSpace(a.Picture)

	if a.ExternalID == "" {
		return a, fmt.Errorf("%w: external id is empty", model.ErrInvalidIdentity)
	}
	if len(a.ExternalID) > maxExternalIDLength {
		return a, fmt.Errorf("%w: external id is too long", model.ErrInvalidIdentity)
	}
	if strings.IndexFunc(a.ExternalID, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return a, fmt.Errorf("%w: external id contains whitespace or control characters", model.ErrInvalidIdentity)
	}

	if a.Email == "" && strings.Contains(a.ExternalID, "@") {
		if validEmail(a.ExternalID) {
			a.Email = a.ExternalID
		}
	}
	if a.Email != "" && !validEmail(a.Email) {
		return a, fmt.Errorf("%w: malformed email %q", model.ErrInvalidIdentity, a.Email)
	}

	if a.Name == "" {
		source := a.Email
		if source == "" {
			source = a.ExternalID
		}
		a.Name, _, _ = strings.Cut(source, "@")
	}
	return a, nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
