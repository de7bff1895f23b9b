package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrphanJournal durably records ledger accounts that have no wallet row.
type OrphanJournal interface {
	Record(ctx context.Context, orphan OrphanAccount) (string, error)
}

// Orphan reasons.
const (
	OrphanPersistFailed  = "persist_failed"
	OrphanOutcomeUnknown = "outcome_unknown"
)

// OrphanAccount describes a ledger account that needs manual reconciliation.
// AccountID is empty when the ledger call timed out and the outcome is unknown.
type OrphanAccount struct {
	UserID           uuid.UUID `json:"user_id"`
	AccountID        string    `json:"account_id,omitempty"`
	TransactionID    string    `json:"transaction_id,omitempty"`
	PublicKey        string    `json:"public_key"`
	SealedPrivateKey []byte    `json:"sealed_private_key"`
	Reason           string    `json:"reason"`
	Cause            string    `json:"cause"`
	RecordedAt       time.Time `json:"recorded_at"`
}
