package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/ledger"
	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/service"
)

// WalletService defines wallet read and provisioning operations.
type WalletService interface {
	Wallet(ctx context.Context, userID uuid.UUID) (service.WalletView, error)
	RetryProvisioning(ctx context.Context, userID uuid.UUID) (model.WalletSummary, error)
	Balance(ctx context.Context, userID uuid.UUID) (service.WalletBalance, error)
	Transfer(ctx context.Context, userID uuid.UUID, to string, amount ledger.Amount) (ledger.Receipt, error)
}

// Wallet handles HTTP endpoints for the wallet of the authenticated user.
type Wallet struct {
	walletService  WalletService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewWallet creates a new Wallet handler.
func NewWallet(walletService WalletService, contextManager model.ContextManager, logger *logger.Logger) *Wallet {
	return &Wallet{
		walletService:  walletService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register mounts the wallet routes on r. The routes require authentication.
func (h *Wallet) Register(r chi.Router) {
	r.Get("/wallet", h.Get)
	r.Post("/wallet/provision", h.Provision)
	r.Get("/wallet/balance", h.Balance)
	r.Post("/wallet/transfer", h.Transfer)
}

type walletResponse struct {
	AccountID      string                `json:"account_id"`
	PublicKey      string                `json:"public_key"`
	BalanceTinybar int64                 `json:"balance_tinybar"`
	BalanceHbar    float64               `json:"balance_hbar"`
	Tokens         []ledger.TokenHolding `json:"tokens"`
	RefreshedAt    time.Time             `json:"refreshed_at"`
}

type balanceResponse struct {
	AccountID      string    `json:"account_id"`
	BalanceTinybar int64     `json:"balance_tinybar"`
	BalanceHbar    float64   `json:"balance_hbar"`
	RefreshedAt    time.Time `json:"refreshed_at"`
}

type transferRequest struct {
	To            string `json:"to"`
	AmountTinybar int64  `json:"amount_tinybar"`
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Get returns the live ledger state of the wallet.
func (h *Wallet) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	view, err := h.walletService.Wallet(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("Wallet handler: wallet lookup failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}

	tokens := view.Tokens
	if tokens == nil {
		tokens = []ledger.TokenHolding{}
	}
	writeJSON(w, http.StatusOK, walletResponse{
		AccountID:      view.AccountID,
		PublicKey:      view.PublicKey,
		BalanceTinybar: view.BalanceTinybar,
		BalanceHbar:    ledger.Amount(view.BalanceTinybar).Hbar(),
		Tokens:         tokens,
		RefreshedAt:    view.RefreshedAt,
	})
}

// Provision creates the wallet of a user whose login left it pending.
func (h *Wallet) Provision(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	summary, err := h.walletService.RetryProvisioning(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Wallet handler: provisioning failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}

	h.logger.Info("Wallet handler: wallet provisioned",
		"user_id", user.ID,
		"account_id", summary.AccountID)
	writeJSON(w, http.StatusOK, summary)
}

// Balance returns the live hbar balance of the wallet.
func (h *Wallet) Balance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	b, err := h.walletService.Balance(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("Wallet handler: balance lookup failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID:      b.AccountID,
		BalanceTinybar: b.BalanceTinybar,
		BalanceHbar:    ledger.Amount(b.BalanceTinybar).Hbar(),
		RefreshedAt:    b.RefreshedAt,
	})
}

// Transfer sends hbars from the wallet to another account. Clients must not
// resend a transfer that failed with ledger_unavailable without checking the
// balance first.
func (h *Wallet) Transfer(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	var req transferRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	receipt, err := h.walletService.Transfer(r.Context(), user.ID, req.To, ledger.Amount(req.AmountTinybar))
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{
		TransactionID: receipt.TransactionID,
		Status:        receipt.Status,
	})
}
