package model

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidIdentity   = errors.New("invalid identity assertion")
	ErrSecretsInvalid    = errors.New("ledger secrets invalid")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrStoreUnavailable  = errors.New("user store unavailable")

	ErrAccountDisabled        = errors.New("account disabled")
	ErrProvisioningInProgress = errors.New("wallet provisioning already in progress")
	ErrWalletPending          = errors.New("wallet not provisioned yet")
	ErrAccountOrphaned        = errors.New("ledger account created but not persisted")
	ErrInvalidProgress        = errors.New("invalid progress event")

	ErrInvalidTransfer  = errors.New("invalid transfer")
	ErrTransferRejected = errors.New("transfer rejected by the ledger")
)
