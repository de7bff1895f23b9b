// Package hedera implements ledger.Client on the Hedera network.
package hedera

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/nhangara/identity-server/internal/ledger"
)

var _ ledger.Client = (*Client)(nil)

// Config holds the operator credentials and client limits.
type Config struct {
	Network        string
	OperatorID     string
	OperatorKey    string
	RequestTimeout time.Duration
	MaxAttempts    int
}

// Client executes transactions on behalf of the operator account, which pays
// for account creation and signs transfers.
type Client struct {
	client   *sdk.Client
	operator sdk.AccountID
	timeout  time.Duration
}

// New builds a client for cfg.Network. Credentials are expected to have passed
// the secrets gate already.
func New(cfg Config) (*Client, error) {
	client, err := sdk.ClientForName(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to create hedera client for %q: %w", cfg.Network, err)
	}

	operatorID, err := sdk.AccountIDFromString(cfg.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator account id: %w", err)
	}
	operatorKey, err := sdk.PrivateKeyFromString(cfg.OperatorKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator key: %w", err)
	}

	client.SetOperator(operatorID, operatorKey)
	if cfg.MaxAttempts > 0 {
		client.SetMaxAttempts(cfg.MaxAttempts)
	}

	return &Client{client: client, operator: operatorID, timeout: cfg.RequestTimeout}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) CreateAccount(ctx context.Context, publicKey string, initialBalance ledger.Amount) (string, error) {
	key, err := sdk.PublicKeyFromString(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ledger.ErrRejected, err)
	}

	return call(ctx, c.timeout, func() (string, error) {
		resp, err := sdk.NewAccountCreateTransaction().
			SetKey(key).
			SetInitialBalance(sdk.HbarFromTinybar(int64(initialBalance))).
			Execute(c.client)
		if err != nil {
			return "", err
		}
		receipt, err := resp.GetReceipt(c.client)
		if err != nil {
			return "", submitted(resp, err)
		}
		if receipt.AccountID == nil {
			return "", fmt.Errorf("%w: receipt has no account id", ledger.ErrRejected)
		}
		return receipt.AccountID.String(), nil
	})
}

func (c *Client) GetBalance(ctx context.Context, accountID string) (ledger.Amount, error) {
	id, err := sdk.AccountIDFromString(accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ledger.ErrMalformedAccountID, err)
	}

	return call(ctx, c.timeout, func() (ledger.Amount, error) {
		balance, err := sdk.NewAccountBalanceQuery().SetAccountID(id).Execute(c.client)
		if err != nil {
			return 0, err
		}
		return ledger.Amount(balance.Hbars.AsTinybar()), nil
	})
}

func (c *Client) GetAccountInfo(ctx context.Context, accountID string) (ledger.AccountInfo, error) {
	id, err := sdk.AccountIDFromString(accountID)
	if err != nil {
		return ledger.AccountInfo{}, fmt.Errorf("%w: %w", ledger.ErrMalformedAccountID, err)
	}

	return call(ctx, c.timeout, func() (ledger.AccountInfo, error) {
		info, err := sdk.NewAccountInfoQuery().SetAccountID(id).Execute(c.client)
		if err != nil {
			return ledger.AccountInfo{}, err
		}
		out := ledger.AccountInfo{
			AccountID: info.AccountID.String(),
			Balance:   ledger.Amount(info.Balance.AsTinybar()),
		}
		for _, rel := range info.TokenRelationships {
			out.Tokens = append(out.Tokens, ledger.TokenHolding{
				TokenID:  rel.TokenID.String(),
				Symbol:   rel.Symbol,
				Balance:  rel.Balance,
				Decimals: rel.Decimals,
			})
		}
		return out, nil
	})
}

// Transfer moves hbars between accounts. The operator pays the fee. A
// transfer debiting another account is also signed with req.SignerKey.
func (c *Client) Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Receipt, error) {
	fromID, err := sdk.AccountIDFromString(req.From)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%w: %w", ledger.ErrMalformedAccountID, err)
	}
	toID, err := sdk.AccountIDFromString(req.To)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%w: %w", ledger.ErrMalformedAccountID, err)
	}
	var signer *sdk.PrivateKey
	if req.SignerKey != "" {
		key, err := sdk.PrivateKeyFromString(req.SignerKey)
		if err != nil {
			return ledger.Receipt{}, fmt.Errorf("%w: signer key: %w", ledger.ErrRejected, err)
		}
		signer = &key
	}

	return call(ctx, c.timeout, func() (ledger.Receipt, error) {
		tx, err := sdk.NewTransferTransaction().
			AddHbarTransfer(fromID, sdk.HbarFromTinybar(-int64(req.Amount))).
			AddHbarTransfer(toID, sdk.HbarFromTinybar(int64(req.Amount))).
			SetTransactionMemo(req.Memo).
			FreezeWith(c.client)
		if err != nil {
			return ledger.Receipt{}, fmt.Errorf("%w: %w", ledger.ErrRejected, err)
		}
		if signer != nil {
			tx = tx.Sign(*signer)
		}
		resp, err := tx.Execute(c.client)
		if err != nil {
			return ledger.Receipt{}, err
		}
		receipt, err := resp.GetReceipt(c.client)
		if err != nil {
			return ledger.Receipt{}, submitted(resp, err)
		}
		return ledger.Receipt{
			TransactionID: resp.TransactionID.String(),
			Status:        receipt.Status.String(),
		}, nil
	})
}

// call runs fn, which blocks on the network, and gives up when ctx or the
// request timeout ends first. The SDK bounds the abandoned call with its own
// retry limit.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", ledger.ErrUnavailable, ctx.Err())
	case r := <-done:
		return r.val, classify(r.err)
	}
}

// submitted classifies a receipt failure of an executed transaction. A
// failing receipt status is a rejection. Anything else leaves the outcome
// unknown.
func submitted(resp sdk.TransactionResponse, err error) error {
	var status sdk.ErrHederaReceiptStatus
	if errors.As(err, &status) {
		return fmt.Errorf("%w: %w", ledger.ErrRejected, err)
	}
	return &ledger.OutcomeUnknownError{TransactionID: resp.TransactionID.String(), Err: err}
}

// classify maps SDK errors onto the ledger error kinds.
func classify(err error) error {
	if err == nil || errors.Is(err, ledger.ErrRejected) || errors.Is(err, ledger.ErrUnavailable) {
		return err
	}

	var precheck sdk.ErrHederaPreCheckStatus
	var receipt sdk.ErrHederaReceiptStatus
	if errors.As(err, &precheck) || errors.As(err, &receipt) {
		return fmt.Errorf("%w: %w", ledger.ErrRejected, err)
	}
	return fmt.Errorf("%w: %w", ledger.ErrUnavailable, err)
}
