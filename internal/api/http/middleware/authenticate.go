package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nhangara/identity-server/internal/api/http/handler"
	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/model"
)

// SessionValidator resolves the user owning a session token.
type SessionValidator interface {
	ValidateSession(ctx context.Context, presented string) (model.User, error)
}

// Authenticate validates bearer session tokens and injects the user into the context.
type Authenticate struct {
	sessions       SessionValidator
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(sessions SessionValidator, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{sessions: sessions, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a live session with 401. A store outage
// answers 503 so clients do not drop a session that may still be valid.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := handler.BearerToken(r)
		if token == "" {
			handler.WriteError(w, model.ErrSessionInvalid)
			return
		}

		user, err := m.sessions.ValidateSession(r.Context(), token)
		if err != nil {
			if !errors.Is(err, model.ErrSessionInvalid) {
				m.logger.Error("Authenticate middleware: session validation failed",
					"path", r.URL.Path,
					"error", err.Error())
			}
			handler.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetUserToContext(r.Context(), user)))
	})
}
