package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nhangara/identity-server/internal/model"
)

var _ model.Store = (*Store)(nil)

// Store exposes the repositories bound either to the pool or to one transaction.
type Store struct {
	conn *Connection
	db   DBTX
	inTx bool
}

func NewStore(conn *Connection) *Store {
	return &Store{conn: conn, db: conn.Pool}
}

func (s *Store) Users() model.UserStore { return NewUserRepository(s.db) }
func (s *Store) Wallets() model.WalletStore { return NewWalletRepository(s.db) }
func (s *Store) Sessions() model.SessionStore { return NewSessionRepository(s.db) }
func (s *Store) Progress() model.ProgressStore { return NewProgressRepository(s.db) }
func (s *Store) Ping(ctx context.Context) error { return s.conn.Ping(ctx) }

// WithinTx runs fn in a transaction. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx model.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	err := pgx.BeginFunc(ctx, s.conn.Pool, func(tx pgx.Tx) error {
		return fn(&Store{conn: s.conn, db: tx, inTx: true})
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}
