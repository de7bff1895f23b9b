package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhangara/identity-server/internal/config"
	"github.com/nhangara/identity-server/internal/ledger"
	"github.com/nhangara/identity-server/internal/ledger/fake"
	"github.com/nhangara/identity-server/internal/metrics"
	"github.com/nhangara/identity-server/internal/mocks"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/repository/memory"
	"github.com/nhangara/identity-server/internal/testutil"
)

func validLedgerConfig(t *testing.T) config.Ledger {
	t.Helper()
	kp, err := ledger.GenerateKeyPair()
	require.NoError(t, err)
	return config.Ledger{
		Environment: config.EnvDevelopment,
		AccountID:   "0.0.2",
		PrivateKey:  kp.PrivateKey,
		PublicKey:   kp.PublicKey,
		Network:     "testnet",
	}
}

type fixture struct {
	vault   *KeyVault
	ledger  *fake.Ledger
	store   *memory.Store
	journal *mocks.OrphanJournal
}

func newFixture(t *testing.T, cfg Config, store model.Store) fixture {
	t.Helper()
	if cfg.Ledger == (config.Ledger{}) {
		cfg.Ledger = validLedgerConfig(t)
	}
	if cfg.PersistBackoff == 0 {
		cfg.PersistBackoff = time.Millisecond
	}
	mem := memory.New()
	if store == nil {
		store = mem
	}
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)

	l := fake.New(fake.WithOperator("0.0.2", 1_000*ledger.TinybarsPerHbar))
	journal := mocks.NewOrphanJournal(t)
	v := New(cfg, l, store, journal, sealer, testutil.MakeNoopLogger(), WithMetrics(metrics.New()))
	return fixture{vault: v, ledger: l, store: mem, journal: journal}
}

func TestKeyVault_ProvisionWallet_CreatesWallet(t *testing.T) {
	f := newFixture(t, Config{InitialBalance: ledger.TinybarsPerHbar}, nil)
	userID := uuid.New()

	w, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, w.UserID)
	assert.Equal(t, "0.0.1001", w.AccountID)
	assert.True(t, ledger.ValidPublicKey(w.PublicKey))
	assert.Equal(t, int64(ledger.TinybarsPerHbar), w.BalanceTinybar)

	privateKey, err := f.vault.openPrivateKey(w)
	require.NoError(t, err)
	assert.NotContains(t, string(w.PrivateKey), privateKey)
	assert.True(t, ledger.MatchingPair(privateKey, w.PublicKey))

	stored, err := f.store.Wallets().GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, w.AccountID, stored.AccountID)

	balance, err := f.ledger.GetBalance(context.Background(), w.AccountID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(ledger.TinybarsPerHbar), balance)
}

func TestKeyVault_ProvisionWallet_ReturnsExisting(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	userID := uuid.New()

	first, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)
	second, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, first.AccountID, second.AccountID)
	assert.Equal(t, 1, f.ledger.Calls(fake.OpCreateAccount))
}

func TestKeyVault_ProvisionWallet_SecretsInvalid(t *testing.T) {
	cfg := Config{Ledger: config.Ledger{Environment: config.EnvProduction, Network: "mainnet"}}
	f := newFixture(t, cfg, nil)
	userID := uuid.New()

	_, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrSecretsInvalid)

	assert.Zero(t, f.ledger.Calls(fake.OpCreateAccount))
	_, err = f.store.Wallets().GetByUserID(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestKeyVault_ProvisionWallet_LedgerRejects(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	userID := uuid.New()
	f.ledger.FailNext(fake.OpCreateAccount, fmt.Errorf("%w: INSUFFICIENT_PAYER_BALANCE", ledger.ErrRejected))

	_, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrLedgerUnavailable)
	assert.ErrorIs(t, err, ledger.ErrRejected)

	// The claim was released, so the next attempt proceeds.
	w, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEmpty(t, w.AccountID)
	f.journal.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestKeyVault_ProvisionWallet_LedgerTimeout(t *testing.T) {
	f := newFixture(t, Config{ProvisionTimeout: 50 * time.Millisecond}, nil)
	userID := uuid.New()
	f.ledger.HangNext(fake.OpCreateAccount)
	f.journal.On("Record", mock.Anything, mock.MatchedBy(func(o model.OrphanAccount) bool {
		return o.UserID == userID &&
			o.Reason == model.OrphanOutcomeUnknown &&
			o.AccountID == "" &&
			ledger.ValidPublicKey(o.PublicKey) &&
			len(o.SealedPrivateKey) > 0
	})).Return("orphans/01J.json", nil).Once()

	start := time.Now()
	_, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrLedgerUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = f.store.Wallets().GetByUserID(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	w, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEmpty(t, w.AccountID)
	assert.Equal(t, 1, f.ledger.AccountCount())
}

// receiptLost creates the account and then fails as if the receipt query
// had lost its connection.
type receiptLost struct {
	*fake.Ledger
}

func (r receiptLost) CreateAccount(ctx context.Context, publicKey string, initialBalance ledger.Amount) (string, error) {
	if _, err := r.Ledger.CreateAccount(ctx, publicKey, initialBalance); err != nil {
		return "", err
	}
	return "", &ledger.OutcomeUnknownError{
		TransactionID: "0.0.2@1700000000.000000001",
		Err:           errors.New("grpc: connection reset"),
	}
}

func TestKeyVault_ProvisionWallet_ReceiptLostRecordsOrphan(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)
	v := New(Config{Ledger: validLedgerConfig(t), PersistBackoff: time.Millisecond},
		receiptLost{f.ledger}, f.store, f.journal, sealer, testutil.MakeNoopLogger())
	userID := uuid.New()
	f.journal.On("Record", mock.Anything, mock.MatchedBy(func(o model.OrphanAccount) bool {
		return o.UserID == userID &&
			o.Reason == model.OrphanOutcomeUnknown &&
			o.TransactionID == "0.0.2@1700000000.000000001" &&
			ledger.ValidPublicKey(o.PublicKey) &&
			len(o.SealedPrivateKey) > 0
	})).Return("orphans/01J.json", nil).Once()

	_, err = v.ProvisionWallet(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrLedgerUnavailable)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.Equal(t, 1, f.ledger.AccountCount())

	_, err = f.store.Wallets().GetByUserID(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// The claim was released.
	ok, err := f.store.Wallets().Claim(context.Background(), model.WalletClaim{
		UserID:    userID,
		Token:     uuid.New(),
		ClaimedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeyVault_ProvisionWallet_TransportErrorRecordsOrphan(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	userID := uuid.New()
	f.ledger.FailNext(fake.OpCreateAccount, fmt.Errorf("%w: connection refused", ledger.ErrUnavailable))
	f.journal.On("Record", mock.Anything, mock.MatchedBy(func(o model.OrphanAccount) bool {
		return o.UserID == userID && o.Reason == model.OrphanOutcomeUnknown
	})).Return("orphans/01J.json", nil).Once()

	_, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrLedgerUnavailable)
}

func TestKeyVault_ProvisionWallet_NotSubmittedSkipsJournal(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)
	client := ledger.Unavailable{Cause: errors.New("failed to create hedera client")}
	v := New(Config{Ledger: validLedgerConfig(t)}, client, f.store, f.journal, sealer, testutil.MakeNoopLogger())

	_, err = v.ProvisionWallet(context.Background(), uuid.New())
	require.ErrorIs(t, err, model.ErrLedgerUnavailable)
	f.journal.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestKeyVault_ProvisionWallet_ClaimHeld(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	userID := uuid.New()
	now := time.Now()
	ok, err := f.store.Wallets().Claim(context.Background(), model.WalletClaim{
		UserID:    userID,
		Token:     uuid.New(),
		ClaimedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.vault.ProvisionWallet(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrProvisioningInProgress)
	assert.Zero(t, f.ledger.Calls(fake.OpCreateAccount))
}

// flakyStore fails the first failures transactions.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(tx model.Store) error) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.Store.WithinTx(ctx, fn)
}

func TestKeyVault_ProvisionWallet_PersistRetries(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 2}
	f := newFixture(t, Config{PersistAttempts: 3}, store)
	userID := uuid.New()

	w, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "0.0.1001", w.AccountID)
	assert.Equal(t, 1, f.ledger.AccountCount())

	stored, err := store.Wallets().GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, w.AccountID, stored.AccountID)
}

func TestKeyVault_ProvisionWallet_PersistFailsRecordsOrphan(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 100}
	f := newFixture(t, Config{PersistAttempts: 2}, store)
	userID := uuid.New()
	f.journal.On("Record", mock.Anything, mock.MatchedBy(func(o model.OrphanAccount) bool {
		return o.UserID == userID &&
			o.Reason == model.OrphanPersistFailed &&
			o.AccountID == "0.0.1001" &&
			len(o.SealedPrivateKey) > 0 &&
			o.Cause != ""
	})).Return("orphans/01J.json", nil).Once()

	_, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrAccountOrphaned)
	assert.Contains(t, err.Error(), "0.0.1001")

	_, err = store.Wallets().GetByUserID(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestKeyVault_ProvisionWallet_JournalDown(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 100}
	f := newFixture(t, Config{PersistAttempts: 1}, store)
	f.journal.On("Record", mock.Anything, mock.Anything).Return("", errors.New("bucket unreachable")).Once()

	_, err := f.vault.ProvisionWallet(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrAccountOrphaned)
}

func TestKeyVault_ProvisionWallet_ConcurrentCallsCreateOneAccount(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	userID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	wallets := make([]model.Wallet, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wallets[i], errs[i] = f.vault.ProvisionWallet(context.Background(), userID)
		}()
	}
	wg.Wait()

	var accountID string
	for i, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, model.ErrProvisioningInProgress)
			continue
		}
		if accountID == "" {
			accountID = wallets[i].AccountID
		}
		assert.Equal(t, accountID, wallets[i].AccountID)
	}
	assert.Equal(t, 1, f.ledger.AccountCount())

	w, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "0.0.1001", w.AccountID)
}

func TestKeyVault_ProvisionWallet_KeyGenerationFails(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.vault.generate = func() (ledger.KeyPair, error) { return ledger.KeyPair{}, errors.New("entropy exhausted") }
	userID := uuid.New()

	_, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.Error(t, err)
	assert.Zero(t, f.ledger.Calls(fake.OpCreateAccount))

	f.vault.generate = ledger.GenerateKeyPair
	_, err = f.vault.ProvisionWallet(context.Background(), userID)
	assert.NoError(t, err)
}

func TestNew_ClaimTTLCoversProvisioningWindow(t *testing.T) {
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)
	l := fake.New()

	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{
			name: "defaults",
			cfg:  Config{},
			want: time.Minute,
		},
		{
			name: "short ttl is raised",
			cfg:  Config{ProvisionTimeout: 30 * time.Second, ClaimTTL: 10 * time.Second, SideEffectTimeout: time.Second},
			want: 61 * time.Second,
		},
		{
			name: "long ttl is kept",
			cfg:  Config{ProvisionTimeout: time.Second, ClaimTTL: time.Hour},
			want: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tt.cfg, l, memory.New(), nil, sealer, testutil.MakeNoopLogger())
			assert.Equal(t, tt.want, v.cfg.ClaimTTL)
			assert.GreaterOrEqual(t, v.cfg.ClaimTTL, ProvisioningWindow(v.cfg))
		})
	}
}

func TestKeyVault_Transfer(t *testing.T) {
	f := newFixture(t, Config{InitialBalance: 100}, nil)
	userID := uuid.New()
	w, err := f.vault.ProvisionWallet(context.Background(), userID)
	require.NoError(t, err)

	receipt, err := f.vault.Transfer(context.Background(), w, "0.0.2", 30)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", receipt.Status)
	assert.Equal(t, []string{ledger.TransferMemo}, f.ledger.Memos())

	balance, err := f.ledger.GetBalance(context.Background(), w.AccountID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(70), balance)
}

func TestKeyVault_Transfer_Failures(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t, Config{InitialBalance: 100}, nil)
		w, err := f.vault.ProvisionWallet(context.Background(), uuid.New())
		require.NoError(t, err)

		_, err = f.vault.Transfer(context.Background(), w, "0.0.2", 1_000)
		assert.ErrorIs(t, err, model.ErrTransferRejected)
	})

	t.Run("sealed under another user", func(t *testing.T) {
		f := newFixture(t, Config{InitialBalance: 100}, nil)
		w, err := f.vault.ProvisionWallet(context.Background(), uuid.New())
		require.NoError(t, err)
		w.UserID = uuid.New()

		_, err = f.vault.Transfer(context.Background(), w, "0.0.2", 10)
		assert.ErrorIs(t, err, ErrSealedKeyCorrupt)
		assert.Zero(t, f.ledger.Calls(fake.OpTransfer))
	})

	t.Run("outcome unknown is not retried", func(t *testing.T) {
		f := newFixture(t, Config{InitialBalance: 100}, nil)
		w, err := f.vault.ProvisionWallet(context.Background(), uuid.New())
		require.NoError(t, err)
		f.ledger.FailNext(fake.OpTransfer, &ledger.OutcomeUnknownError{TransactionID: "0.0.1001@1", Err: errors.New("EOF")})

		_, err = f.vault.Transfer(context.Background(), w, "0.0.2", 10)
		assert.ErrorIs(t, err, model.ErrLedgerUnavailable)
		assert.Equal(t, 1, f.ledger.Calls(fake.OpTransfer))
	})

	t.Run("secrets invalid", func(t *testing.T) {
		f := newFixture(t, Config{}, nil)
		w, err := f.vault.ProvisionWallet(context.Background(), uuid.New())
		require.NoError(t, err)
		f.vault.cfg.Ledger = config.Ledger{Environment: config.EnvProduction}

		_, err = f.vault.Transfer(context.Background(), w, "0.0.2", 10)
		assert.ErrorIs(t, err, model.ErrSecretsInvalid)
		assert.Zero(t, f.ledger.Calls(fake.OpTransfer))
	})
}
