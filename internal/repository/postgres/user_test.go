package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	db := &Connection{}

	users := NewUserRepository(db)
	wallets := NewWalletRepository(db)
	sessions := NewSessionRepository(db)
	progress := NewProgressRepository(db)

	assert.Equal(t, db, users.db)
	assert.Equal(t, db, wallets.db)
	assert.Equal(t, db, sessions.db)
	assert.Equal(t, db, progress.db)
}

func TestStore_Accessors(t *testing.T) {
	conn := &Connection{}
	s := NewStore(conn)

	assert.IsType(t, &UserRepository{}, s.Users())
	assert.IsType(t, &WalletRepository{}, s.Wallets())
	assert.IsType(t, &SessionRepository{}, s.Sessions())
	assert.IsType(t, &ProgressRepository{}, s.Progress())
	assert.False(t, s.inTx)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestConnection_PingNilPool(t *testing.T) {
	c := &Connection{}
	err := c.Ping(t.Context())
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
