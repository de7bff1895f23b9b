package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/service"
)

// AuthService defines login and logout operations.
type AuthService interface {
	Login(ctx context.Context, assertion model.IdentityAssertion) (service.LoginResult, error)
	LoginSigned(ctx context.Context, signed string) (service.LoginResult, error)
	Logout(ctx context.Context, presented string) error
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService AuthService
	logger      *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, logger *logger.Logger) *Auth {
	return &Auth{
		authService: authService,
		logger:      logger,
	}
}

// Register mounts the auth routes on r.
func (h *Auth) Register(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)
}

type loginRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	// Assertion is a signed identity assertion. When present the other
	// fields are ignored.
	Assertion string `json:"assertion"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type loginResponse struct {
	User    model.User          `json:"user"`
	Session sessionResponse     `json:"session"`
	Wallet  model.WalletSummary `json:"wallet"`
}

type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

// Login maps an identity assertion to a user, a session and a wallet.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		badRequest(w, "malformed login request")
		return
	}

	h.logger.Debug("Auth handler: processing login request",
		"external_id", req.ExternalID,
		"signed", req.Assertion != "")

	var (
		result service.LoginResult
		err    error
	)
	if req.Assertion != "" {
		result, err = h.authService.LoginSigned(r.Context(), req.Assertion)
	} else {
		result, err = h.authService.Login(r.Context(), model.IdentityAssertion{
			ExternalID: req.ExternalID,
			Email:      req.Email,
			Name:       req.Name,
			Picture:    req.Picture,
		})
	}
	if err != nil {
		h.logger.Error("Auth handler: login failed",
			"external_id", req.ExternalID,
			"error", err.Error())
		WriteError(w, err)
		return
	}

	h.logger.Info("Auth handler: login completed",
		"user_id", result.User.ID,
		"wallet_pending", result.Wallet.Pending)

	writeJSON(w, http.StatusOK, loginResponse{
		User: result.User,
		Session: sessionResponse{
			Token:     result.Session.Token,
			ExpiresAt: result.Session.ExpiresAt,
		},
		Wallet: result.Wallet,
	})
}

// Logout revokes the session presented as a bearer token or in the body.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		var req logoutRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			badRequest(w, "malformed logout request")
			return
		}
		token = req.SessionToken
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		h.logger.Error("Auth handler: logout failed",
			"error", err.Error())
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
