package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/model"
)

// ProgressService defines game progress operations.
type ProgressService interface {
	Progress(ctx context.Context, userID uuid.UUID) (model.Progress, error)
	RecordProgress(ctx context.Context, userID uuid.UUID, event model.ProgressEvent) (model.Progress, error)
	MarkWelcomeVideoSeen(ctx context.Context, userID uuid.UUID) (model.Progress, error)
}

// Progress handles HTTP endpoints for the game progress of the authenticated user.
type Progress struct {
	progressService ProgressService
	contextManager  model.ContextManager
	logger          *logger.Logger
}

// NewProgress creates a new Progress handler.
func NewProgress(progressService ProgressService, contextManager model.ContextManager, logger *logger.Logger) *Progress {
	return &Progress{
		progressService: progressService,
		contextManager:  contextManager,
		logger:          logger,
	}
}

// Register mounts the progress routes on r. The routes require authentication.
func (h *Progress) Register(r chi.Router) {
	r.Get("/progress", h.Get)
	r.Post("/progress/events", h.Record)
	r.Post("/progress/welcome-video", h.WelcomeVideoSeen)
}

func (h *Progress) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	progress, err := h.progressService.Progress(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Progress handler: progress lookup failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Record applies a gameplay event.
func (h *Progress) Record(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	var event model.ProgressEvent
	if err := decodeJSON(w, r, &event, false); err != nil {
		badRequest(w, "malformed progress event")
		return
	}

	progress, err := h.progressService.RecordProgress(r.Context(), user.ID, event)
	if err != nil {
		h.logger.Error("Progress handler: recording progress failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Progress) WelcomeVideoSeen(w http.ResponseWriter, r *http.Request) {
	user, ok := h.contextManager.GetUserFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrSessionInvalid)
		return
	}

	progress, err := h.progressService.MarkWelcomeVideoSeen(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Progress handler: marking welcome video failed",
			"user_id", user.ID,
			"error", err.Error())
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
