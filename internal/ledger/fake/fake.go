// Package fake implements ledger.Client in memory with deterministic account
// ids and injectable failures.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhangara/identity-server/internal/ledger"
)

// Operations that failures can be injected into.
type Op string

const (
	OpCreateAccount  Op = "create_account"
	OpGetBalance     Op = "get_balance"
	OpGetAccountInfo Op = "get_account_info"
	OpTransfer       Op = "transfer"
)

var _ ledger.Client = (*Ledger)(nil)

type account struct {
	publicKey string
	balance   ledger.Amount
	tokens    []ledger.TokenHolding
}

type fault struct {
	err  error
	hang bool
}

// Ledger is a deterministic in-memory ledger.
type Ledger struct {
	mu       sync.Mutex
	shard    int64
	realm    int64
	next     int64
	operator string
	accounts map[string]*account
	faults   map[Op][]fault
	calls    map[Op]int
	txSeq    int64
	memos    []string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithOperator funds the operator account the new accounts are paid from.
func WithOperator(accountID string, balance ledger.Amount) Option {
	return func(l *Ledger) {
		l.operator = accountID
		l.accounts[accountID] = &account{balance: balance}
	}
}

// WithFirstAccountNumber sets the account number handed out first.
func WithFirstAccountNumber(n int64) Option {
	return func(l *Ledger) { l.next = n }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		next:     1001,
		accounts: make(map[string]*account),
		faults:   make(map[Op][]fault),
		calls:    make(map[Op]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FailNext makes the next call of op return err.
func (l *Ledger) FailNext(op Op, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[op] = append(l.faults[op], fault{err: err})
}

// HangNext makes the next call of op block until its context is done,
// emulating a network that never answers.
func (l *Ledger) HangNext(op Op) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[op] = append(l.faults[op], fault{hang: true})
}

// Calls returns how many times op was invoked.
func (l *Ledger) Calls(op Op) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// AccountCount returns the number of accounts created, operator excluded.
func (l *Ledger) AccountCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.accounts)
	if l.operator != "" {
		n--
	}
	return n
}

// SetTokens replaces the token holdings of an account.
func (l *Ledger) SetTokens(accountID string, tokens []ledger.TokenHolding) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[accountID]; ok {
		a.tokens = tokens
	}
}

// enter records the call and applies a queued fault. It must be called
// without holding mu.
func (l *Ledger) enter(ctx context.Context, op Op) error {
	l.mu.Lock()
	l.calls[op]++
	var f *fault
	if q := l.faults[op]; len(q) > 0 {
		f = &q[0]
		l.faults[op] = q[1:]
	}
	l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrUnavailable, err)
	}
	if f == nil {
		return nil
	}
	if f.hang {
		<-ctx.Done()
		return fmt.Errorf("%w: %w", ledger.ErrUnavailable, ctx.Err())
	}
	return f.err
}

func (l *Ledger) CreateAccount(ctx context.Context, publicKey string, initialBalance ledger.Amount) (string, error) {
	if err := l.enter(ctx, OpCreateAccount); err != nil {
		return "", err
	}
	if !ledger.ValidPublicKey(publicKey) {
		return "", fmt.Errorf("%w: invalid public key", ledger.ErrRejected)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.operator != "" {
		op := l.accounts[l.operator]
		if op.balance < initialBalance {
			return "", fmt.Errorf("%w: insufficient operator balance", ledger.ErrRejected)
		}
		op.balance -= initialBalance
	}
	id := fmt.Sprintf("%d.%d.%d", l.shard, l.realm, l.next)
	l.next++
	l.accounts[id] = &account{publicKey: publicKey, balance: initialBalance}
	return id, nil
}

func (l *Ledger) GetBalance(ctx context.Context, accountID string) (ledger.Amount, error) {
	if err := l.enter(ctx, OpGetBalance); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountID]
	if !ok {
		return 0, fmt.Errorf("%w: account %s not found", ledger.ErrRejected, accountID)
	}
	return a.balance, nil
}

func (l *Ledger) GetAccountInfo(ctx context.Context, accountID string) (ledger.AccountInfo, error) {
	if err := l.enter(ctx, OpGetAccountInfo); err != nil {
		return ledger.AccountInfo{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountID]
	if !ok {
		return ledger.AccountInfo{}, fmt.Errorf("%w: account %s not found", ledger.ErrRejected, accountID)
	}
	return ledger.AccountInfo{
		AccountID: accountID,
		Balance:   a.balance,
		Tokens:    append([]ledger.TokenHolding(nil), a.tokens...),
	}, nil
}

func (l *Ledger) Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Receipt, error) {
	if err := l.enter(ctx, OpTransfer); err != nil {
		return ledger.Receipt{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.accounts[req.From]
	if !ok {
		return ledger.Receipt{}, fmt.Errorf("%w: account %s not found", ledger.ErrRejected, req.From)
	}
	dst, ok := l.accounts[req.To]
	if !ok {
		return ledger.Receipt{}, fmt.Errorf("%w: account %s not found", ledger.ErrRejected, req.To)
	}
	if req.From != l.operator && !ledger.MatchingPair(req.SignerKey, src.publicKey) {
		return ledger.Receipt{}, fmt.Errorf("%w: INVALID_SIGNATURE", ledger.ErrRejected)
	}
	if req.Amount <= 0 || src.balance < req.Amount {
		return ledger.Receipt{}, fmt.Errorf("%w: insufficient balance", ledger.ErrRejected)
	}
	src.balance -= req.Amount
	dst.balance += req.Amount
	l.txSeq++
	l.memos = append(l.memos, req.Memo)
	return ledger.Receipt{
		TransactionID: fmt.Sprintf("%s@%d", req.From, l.txSeq),
		Status:        "SUCCESS",
	}, nil
}

// Memos returns the memos of the transfers applied so far.
func (l *Ledger) Memos() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.memos...)
}
