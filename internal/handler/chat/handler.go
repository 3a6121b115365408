package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	conversationService "github.com/docchat-app/docchat/internal/service/conversation"
	"github.com/docchat-app/docchat/pkg/utils"
)

// Handler exposes session creation and transcript retrieval.
type Handler struct {
	convSvc *conversationService.Service
}

// New creates the chat handler.
func New(convSvc *conversationService.Service) *Handler {
	return &Handler{convSvc: convSvc}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/turns", h.handleTranscript)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.convSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.convSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, conversationService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}
