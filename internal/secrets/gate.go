// Package secrets validates ledger credentials before any ledger call is made.
package secrets

import (
	"fmt"
	"strings"

	"github.com/nhangara/identity-server/internal/config"
	"github.com/nhangara/identity-server/internal/ledger"
	"github.com/nhangara/identity-server/internal/model"
)

// Reason enumerates why a credential field was rejected.
type Reason string

const (
	ReasonMissing   Reason = "missing"
	ReasonMalformed Reason = "malformed"
	ReasonUnknown   Reason = "unknown"
	ReasonMismatch  Reason = "key_pair_mismatch"
	ReasonTooShort  Reason = "too_short"
)

// MinSealSecretLength is the shortest seal secret accepted outside development.
const MinSealSecretLength = 32

var knownNetworks = map[string]bool{
	"mainnet":    true,
	"testnet":    true,
	"previewnet": true,
}

// Problem is one rejected field, named by its environment variable.
type Problem struct {
	Field  string
	Reason Reason
}

func (p Problem) String() string {
	return p.Field + ": " + string(p.Reason)
}

// Error lists every problem found. It matches model.ErrSecretsInvalid.
type Error struct {
	Environment string
	Problems    []Problem
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	env := e.Environment
	if env == "" {
		env = "<unset>"
	}
	return fmt.Sprintf("secrets invalid for environment %s: %s", env, strings.Join(parts, ", "))
}

func (e *Error) Unwrap() error {
	return model.ErrSecretsInvalid
}

// Has reports whether field was rejected for reason.
func (e *Error) Has(field string, reason Reason) bool {
	for _, p := range e.Problems {
		if p.Field == field && p.Reason == reason {
			return true
		}
	}
	return false
}

// AssertReady validates the credentials of the active environment. It must
// pass before any mutating ledger call.
func AssertReady(cfg config.Ledger) error {
	e := &Error{Environment: cfg.Environment}

	var suffix string
	switch cfg.Environment {
	case "":
		e.Problems = append(e.Problems, Problem{Field: "ENVIRONMENT", Reason: ReasonMissing})
		return e
	case config.EnvDevelopment:
		suffix = "_DEV"
	case config.EnvProduction:
		suffix = "_PROD"
	default:
		e.Problems = append(e.Problems, Problem{Field: "ENVIRONMENT", Reason: ReasonUnknown})
		return e
	}

	check := func(name, value string, valid func(string) bool) bool {
		field := "HEDERA_" + name + suffix
		switch {
		case value == "":
			e.Problems = append(e.Problems, Problem{Field: field, Reason: ReasonMissing})
		case !valid(value):
			e.Problems = append(e.Problems, Problem{Field: field, Reason: ReasonMalformed})
		default:
			return true
		}
		return false
	}

	check("ACCOUNT_ID", cfg.AccountID, func(s string) bool { return ledger.ValidateAccountID(s) == nil })
	privOK := check("PRIVATE_KEY", cfg.PrivateKey, ledger.ValidPrivateKey)
	pubOK := check("PUBLIC_KEY", cfg.PublicKey, ledger.ValidPublicKey)
	if privOK && pubOK && !ledger.MatchingPair(cfg.PrivateKey, cfg.PublicKey) {
		e.Problems = append(e.Problems, Problem{Field: "HEDERA_PUBLIC_KEY" + suffix, Reason: ReasonMismatch})
	}

	switch {
	case cfg.Network == "":
		e.Problems = append(e.Problems, Problem{Field: "HEDERA_NETWORK" + suffix, Reason: ReasonMissing})
	case !knownNetworks[cfg.Network]:
		e.Problems = append(e.Problems, Problem{Field: "HEDERA_NETWORK" + suffix, Reason: ReasonUnknown})
	}

	if len(e.Problems) > 0 {
		return e
	}
	return nil
}

// AssertReadable is the degraded check for read-only calls: only the account
// id being read has to be well formed.
func AssertReadable(accountID string) error {
	if err := ledger.ValidateAccountID(accountID); err != nil {
		return &Error{Problems: []Problem{{Field: "account_id", Reason: ReasonMalformed}}}
	}
	return nil
}

// AssertSealSecret validates the secret wallet keys are sealed under. Only an
// explicit development environment accepts a short secret.
func AssertSealSecret(environment, secret string) error {
	const field = "VAULT_SEAL_SECRET"
	e := &Error{Environment: environment}

	switch {
	case secret == "":
		e.Problems = append(e.Problems, Problem{Field: field, Reason: ReasonMissing})
	case environment != config.EnvDevelopment && len(secret) < MinSealSecretLength:
		e.Problems = append(e.Problems, Problem{Field: field, Reason: ReasonTooShort})
	default:
		return nil
	}
	return e
}
