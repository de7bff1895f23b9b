package model

import "context"

// Store groups the relational stores and runs units of work atomically.
type Store interface {
	Users() UserStore
	Wallets() WalletStore
	Sessions() SessionStore
	Progress() ProgressStore
	// WithinTx runs fn against a Store bound to a single transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
