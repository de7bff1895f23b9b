package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/model"
)

// AccountService defines operations on the authenticated account.
type AccountService interface {
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

// Account handles HTTP endpoints for the authenticated user.
type Account struct {
	accountService AccountService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAccount creates a new Account handler.
func NewAccount(accountService AccountService, contextManager model.ContextManager, logger *logger.Logger) *Account {
	return &Account{
		accountService: accountService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register mounts the account routes on r. The routes require authentication.
func (h *Account) Register(r chi.Router) {
	r.Get("/session", h.Session)
	r.Post("/account/deactivate", h.Deactivate)
}

type sessionUserResponse struct {
	User model.User `json:"user"`
}

// Session returns the user owning the presented session.
func (h *Account) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}
	writeJSON(w, http.StatusOK, sessionUserResponse{User: user})
}

// Deactivate disables the account and ends its sessions.
func (h *Account) Deactivate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	if err := h.accountService.Deactivate(r.Context(), user.ID); err != nil {
		h.logger.Error("Account handler: deactivation failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}

	h.logger.Info("Account handler: account deactivated", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}
