// Package ledger defines the narrow contract the identity core consumes from
// the distributed ledger, plus the key and account id encodings it uses.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// TransferMemo is attached to every transfer issued by the game.
const TransferMemo = "Nhangara Mirim Game Transfer"

var (
	// ErrUnavailable covers timeouts and transport failures.
	ErrUnavailable = errors.New("ledger: unavailable")
	// ErrRejected is returned when the network refused the transaction.
	ErrRejected = errors.New("ledger: rejected")
	// ErrNotSubmitted marks a failure that happened before anything was sent.
	ErrNotSubmitted = errors.New("ledger: not submitted")
)

// OutcomeUnknownError is returned when a transaction reached the network but
// its receipt could not be read. The transaction may still succeed.
// It matches ErrUnavailable.
type OutcomeUnknownError struct {
	TransactionID string
	Err           error
}

func (e *OutcomeUnknownError) Error() string {
	return fmt.Sprintf("ledger: outcome of transaction %s unknown: %v", e.TransactionID, e.Err)
}

func (e *OutcomeUnknownError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// Client is implemented by the network-backed client and by the deterministic fake.
// Calls are at-most-once: callers must not retry CreateAccount or Transfer blindly.
type Client interface {
	// CreateAccount creates an account controlled by publicKey (DER hex) and
	// funds it from the operator account.
	CreateAccount(ctx context.Context, publicKey string, initialBalance Amount) (accountID string, err error)
	GetBalance(ctx context.Context, accountID string) (Amount, error)
	GetAccountInfo(ctx context.Context, accountID string) (AccountInfo, error)
	Transfer(ctx context.Context, req TransferRequest) (Receipt, error)
}

// TransferRequest moves Amount from From to To. SignerKey is the DER hex
// private key controlling From. An empty SignerKey debits the operator.
type TransferRequest struct {
	From      string
	To        string
	Amount    Amount
	Memo      string
	SignerKey string
}

// Amount is a quantity of tinybars.
type Amount int64

// TinybarsPerHbar is the number of tinybars in one hbar.
const TinybarsPerHbar = 100_000_000

// Hbar returns the amount in hbars.
func (a Amount) Hbar() float64 {
	return float64(a) / TinybarsPerHbar
}

func (a Amount) String() string {
	return fmt.Sprintf("%.8f ℏ", a.Hbar())
}

// AccountInfo is the live state of a ledger account.
type AccountInfo struct {
	AccountID string         `json:"account_id"`
	Balance   Amount         `json:"balance_tinybar"`
	Tokens    []TokenHolding `json:"tokens"`
}

// TokenHolding is a token balance held by an account.
type TokenHolding struct {
	TokenID  string `json:"token_id"`
	Symbol   string `json:"symbol,omitempty"`
	Balance  uint64 `json:"balance"`
	Decimals uint32 `json:"decimals"`
}

// Receipt is the outcome of a transfer.
type Receipt struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

var _ Client = Unavailable{}

// Unavailable stands in for the network client when it cannot be built.
// Every call fails with ErrUnavailable and ErrNotSubmitted wrapping Cause.
type Unavailable struct {
	Cause error
}

func (u Unavailable) err() error {
	if u.Cause == nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrNotSubmitted)
	}
	return fmt.Errorf("%w: %w: %w", ErrUnavailable, ErrNotSubmitted, u.Cause)
}

func (u Unavailable) CreateAccount(context.Context, string, Amount) (string, error) {
	return "", u.err()
}

func (u Unavailable) GetBalance(context.Context, string) (Amount, error) {
	return 0, u.err()
}

func (u Unavailable) GetAccountInfo(context.Context, string) (AccountInfo, error) {
	return AccountInfo{}, u.err()
}

func (u Unavailable) Transfer(context.Context, TransferRequest) (Receipt, error) {
	return Receipt{}, u.err()
}
