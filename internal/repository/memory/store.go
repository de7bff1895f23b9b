// Package memory provides an in-process model.Store with the same uniqueness
// guarantees as the PostgreSQL schema. It backs tests and local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/model"
)

// ErrOffline is returned by every call while the store is switched offline.
var ErrOffline = errors.New("memory store: offline")

var (
	_ model.Store         = (*Store)(nil)
	_ model.UserStore     = (*users)(nil)
	_ model.WalletStore   = (*wallets)(nil)
	_ model.SessionStore  = (*sessions)(nil)
	_ model.ProgressStore = (*progress)(nil)
)

type state struct {
	users          map[uuid.UUID]model.User
	usersByExt     map[string]uuid.UUID
	wallets        map[uuid.UUID]model.Wallet
	walletAccounts map[string]uuid.UUID
	claims         map[uuid.UUID]model.WalletClaim
	sessions       map[string]model.Session
	progress       map[uuid.UUID]model.Progress
}

func newState() *state {
	return &state{
		users:          make(map[uuid.UUID]model.User),
		usersByExt:     make(map[string]uuid.UUID),
		wallets:        make(map[uuid.UUID]model.Wallet),
		walletAccounts: make(map[string]uuid.UUID),
		claims:         make(map[uuid.UUID]model.WalletClaim),
		sessions:       make(map[string]model.Session),
		progress:       make(map[uuid.UUID]model.Progress),
	}
}

func (s *state) clone() *state {
	return &state{
		users:          maps.Clone(s.users),
		usersByExt:     maps.Clone(s.usersByExt),
		wallets:        maps.Clone(s.wallets),
		walletAccounts: maps.Clone(s.walletAccounts),
		claims:         maps.Clone(s.claims),
		sessions:       maps.Clone(s.sessions),
		progress:       maps.Clone(s.progress),
	}
}

type db struct {
	txMu    sync.Mutex
	mu      sync.Mutex
	st      *state
	offline atomic.Bool
}

// Store is a model.Store kept in memory. Transactions are serialized and
// rolled back by restoring a snapshot.
type Store struct {
	db   *db
	inTx bool
}

func New() *Store {
	return &Store{db: &db{st: newState()}}
}

// SetOffline makes every subsequent call fail with ErrOffline until reset.
func (s *Store) SetOffline(offline bool) {
	s.db.offline.Store(offline)
}

func (s *Store) Users() model.UserStore       { return &users{s} }
func (s *Store) Wallets() model.WalletStore   { return &wallets{s} }
func (s *Store) Sessions() model.SessionStore { return &sessions{s} }
func (s *Store) Progress() model.ProgressStore { return &progress{s} }

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.offline.Load() {
		return ErrOffline
	}
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx model.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := s.Ping(ctx); err != nil {
		return err
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.Lock()
	snapshot := s.db.st.clone()
	s.db.mu.Unlock()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.mu.Lock()
		s.db.st = snapshot
		s.db.mu.Unlock()
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// do runs fn against the state, serialized with running transactions.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	if !s.inTx {
		s.db.txMu.Lock()
		defer s.db.txMu.Unlock()
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

type users struct{ s *Store }

func (r *users) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	var u model.User
	err := r.s.do(ctx, func(st *state) error {
		id, ok := st.usersByExt[externalID]
		if !ok {
			return model.ErrNotFound
		}
		u = st.users[id]
		return nil
	})
	return u, err
}

func (r *users) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if u, ok = st.users[id]; !ok {
			return model.ErrNotFound
		}
		return nil
	})
	return u, err
}

func (r *users) Create(ctx context.Context, user model.User) (model.User, bool, error) {
	var (
		saved   model.User
		created bool
	)
	err := r.s.do(ctx, func(st *state) error {
		if id, ok := st.usersByExt[user.ExternalID]; ok {
			saved = st.users[id]
			return nil
		}
		st.users[user.ID] = user
		st.usersByExt[user.ExternalID] = user.ID
		saved, created = user, true
		return nil
	})
	return saved, created, err
}

func (r *users) UpdateLogin(ctx context.Context, user model.User) (model.User, error) {
	var saved model.User
	err := r.s.do(ctx, func(st *state) error {
		u, ok := st.users[user.ID]
		if !ok {
			return model.ErrNotFound
		}
		u.Email, u.Name, u.Picture, u.LastLoginAt = user.Email, user.Name, user.Picture, user.LastLoginAt
		st.users[u.ID] = u
		saved = u
		return nil
	})
	return saved, err
}

func (r *users) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return model.ErrNotFound
		}
		u.IsActive = false
		st.users[id] = u
		return nil
	})
}

type wallets struct{ s *Store }

func (r *wallets) GetByUserID(ctx context.Context, userID uuid.UUID) (model.Wallet, error) {
	var w model.Wallet
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if w, ok = st.wallets[userID]; !ok {
			return model.ErrNotFound
		}
		return nil
	})
	return w, err
}

func (r *wallets) Create(ctx context.Context, wallet model.Wallet) (model.Wallet, bool, error) {
	var (
		saved   model.Wallet
		created bool
	)
	err := r.s.do(ctx, func(st *state) error {
		if w, ok := st.wallets[wallet.UserID]; ok {
			saved = w
			return nil
		}
		if _, ok := st.walletAccounts[wallet.AccountID]; ok {
			return fmt.Errorf("ledger account %s already stored", wallet.AccountID)
		}
		st.wallets[wallet.UserID] = wallet
		st.walletAccounts[wallet.AccountID] = wallet.UserID
		saved, created = wallet, true
		return nil
	})
	return saved, created, err
}

func (r *wallets) UpdateBalance(ctx context.Context, userID uuid.UUID, balance int64, refreshedAt time.Time) error {
	return r.s.do(ctx, func(st *state) error {
		w, ok := st.wallets[userID]
		if !ok {
			return model.ErrNotFound
		}
		w.BalanceTinybar = balance
		w.BalanceRefreshedAt = &refreshedAt
		st.wallets[userID] = w
		return nil
	})
}

func (r *wallets) Claim(ctx context.Context, claim model.WalletClaim) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		if held, exists := st.claims[claim.UserID]; exists && held.ExpiresAt.After(claim.ClaimedAt) {
			return nil
		}
		st.claims[claim.UserID] = claim
		ok = true
		return nil
	})
	return ok, err
}

func (r *wallets) ReleaseClaim(ctx context.Context, userID, token uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		if held, ok := st.claims[userID]; ok && held.Token == token {
			delete(st.claims, userID)
		}
		return nil
	})
}

type sessions struct{ s *Store }

func (r *sessions) Create(ctx context.Context, session model.Session) error {
	return r.s.do(ctx, func(st *state) error {
		key := string(session.TokenHash)
		if _, ok := st.sessions[key]; ok {
			return errors.New("session token hash already exists")
		}
		session.Token = ""
		st.sessions[key] = session
		return nil
	})
}

func (r *sessions) GetByTokenHash(ctx context.Context, tokenHash []byte) (model.Session, error) {
	var s model.Session
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if s, ok = st.sessions[string(tokenHash)]; !ok {
			return model.ErrNotFound
		}
		return nil
	})
	return s, err
}

func (r *sessions) DeleteByTokenHash(ctx context.Context, tokenHash []byte) error {
	return r.s.do(ctx, func(st *state) error {
		delete(st.sessions, string(tokenHash))
		return nil
	})
}

func (r *sessions) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		for k, s := range st.sessions {
			if !s.ExpiresAt.After(before) {
				delete(st.sessions, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type progress struct{ s *Store }

func (r *progress) Create(ctx context.Context, p model.Progress) (model.Progress, error) {
	var saved model.Progress
	err := r.s.do(ctx, func(st *state) error {
		if existing, ok := st.progress[p.UserID]; ok {
			saved = existing
			return nil
		}
		st.progress[p.UserID] = p
		saved = p
		return nil
	})
	return saved, err
}

func (r *progress) GetByUserID(ctx context.Context, userID uuid.UUID) (model.Progress, error) {
	var p model.Progress
	err := r.s.do(ctx, func(st *state) error {
		var ok bool
		if p, ok = st.progress[userID]; !ok {
			return model.ErrNotFound
		}
		return nil
	})
	return p, err
}

func (r *progress) Apply(ctx context.Context, userID uuid.UUID, event model.ProgressEvent, at time.Time) (model.Progress, error) {
	var p model.Progress
	err := r.s.do(ctx, func(st *state) error {
		cur, ok := st.progress[userID]
		if !ok {
			return model.ErrNotFound
		}
		p = event.ApplyTo(cur, at)
		st.progress[userID] = p
		return nil
	})
	return p, err
}

func (r *progress) MarkWelcomeVideoSeen(ctx context.Context, userID uuid.UUID, at time.Time) (model.Progress, error) {
	var p model.Progress
	err := r.s.do(ctx, func(st *state) error {
		cur, ok := st.progress[userID]
		if !ok {
			return model.ErrNotFound
		}
		cur.WelcomeVideoSeen = true
		cur.UpdatedAt = at
		st.progress[userID] = cur
		p = cur
		return nil
	})
	return p, err
}
