package handler

import (
	"errors"
	"net/http"

	"github.com/nhangara/identity-server/internal/model"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type apiError struct {
	target  error
	status  int
	code    string
	message string
}

// Store outages are checked first because storeFailure wraps the cause.
var apiErrors = []apiError{
	{model.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", "user store is unavailable, try again later"},
	{model.ErrInvalidIdentity, http.StatusBadRequest, "invalid_identity", ""},
	{model.ErrInvalidProgress, http.StatusBadRequest, "invalid_progress", ""},
	{model.ErrInvalidTransfer, http.StatusBadRequest, "invalid_transfer", ""},
	{model.ErrTransferRejected, http.StatusUnprocessableEntity, "transfer_rejected", "the ledger rejected the transfer"},
	{model.ErrSessionInvalid, http.StatusUnauthorized, "session_invalid", "session is missing, expired or revoked"},
	{model.ErrAccountDisabled, http.StatusForbidden, "account_disabled", "account is disabled"},
	{model.ErrNotFound, http.StatusNotFound, "not_found", "resource not found"},
	{model.ErrWalletPending, http.StatusConflict, "wallet_pending", "wallet is not provisioned yet"},
	{model.ErrProvisioningInProgress, http.StatusConflict, "provisioning_in_progress", "wallet provisioning is already in progress"},
	{model.ErrSecretsInvalid, http.StatusServiceUnavailable, "secrets_invalid", "ledger credentials are not configured"},
	{model.ErrLedgerUnavailable, http.StatusServiceUnavailable, "ledger_unavailable", "ledger is unavailable, try again later"},
}

// WriteError maps err to a status code and writes an ErrorResponse. Errors
// without a mapping become 500 and their text is not exposed.
func WriteError(w http.ResponseWriter, err error) {
	for _, e := range apiErrors {
		if errors.Is(err, e.target) {
			message := e.message
			if message == "" {
				message = err.Error()
			}
			writeJSON(w, e.status, ErrorResponse{Error: e.code, Message: message})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal server error"})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}
