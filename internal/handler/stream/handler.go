package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docchat-app/docchat/internal/model/chat"
	"github.com/docchat-app/docchat/internal/service/ai"
	"github.com/docchat-app/docchat/internal/service/conversation"
	"github.com/docchat-app/docchat/pkg/utils"
)

// Replier abstracts the inference collaborator behind the one call the
// handler needs.
type Replier interface {
	StreamReply(ctx context.Context, history []chat.Turn) (ai.Stream, error)
}

// Handler streams assistant responses to the browser via Server-Sent Events.
type Handler struct {
	replier Replier
	convSvc *conversation.Service
}

// New creates the stream handler.
func New(replier Replier, convSvc *conversation.Service) *Handler {
	return &Handler{replier: replier, convSvc: convSvc}
}

// Frame is one JSON payload on the SSE stream.
type Frame struct {
	Event    string `json:"event"`
	TurnID   string `json:"turnId,omitempty"`
	Content  string `json:"content,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Multipart overhead headroom on top of the document cap.
const maxUploadBytes = chat.MaxDocumentBytes + 1<<20

// RegisterRoutes mounts the submit-and-stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/{sessionID}", h.handleChat)
}

// handleChat accepts one submission (text plus optional PDF) and answers with
// the SSE delta stream for that cycle. The conversation stays busy for the
// whole duration, so a concurrent submission gets a 409.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	text := r.FormValue("message")

	doc, err := h.readAttachment(r)
	if err != nil {
		h.rejectAttachment(w, r, sessionID, err)
		return
	}

	history, turnID, err := h.convSvc.Begin(r.Context(), sessionID, text, doc)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, conversation.ErrBusy):
			utils.RespondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, conversation.ErrEmptySubmission):
			// A submission with nothing in it is a no-op.
			w.WriteHeader(http.StatusNoContent)
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.SetupSSEHeaders(w)
	h.sendSSE(w, flusher, Frame{Event: "start", TurnID: turnID})

	stream, err := h.replier.StreamReply(r.Context(), history)
	if err != nil {
		h.failCycle(r.Context(), w, flusher, sessionID, err)
		return
	}
	defer stream.Close()

	for {
		delta, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.failCycle(r.Context(), w, flusher, sessionID, recvErr)
			return
		}
		if delta == "" {
			continue
		}

		if err := h.convSvc.AppendDelta(r.Context(), sessionID, delta); err != nil {
			log.Printf("[stream] append delta: %v", err)
		}
		h.sendSSE(w, flusher, Frame{Event: "delta", TurnID: turnID, Content: delta})
	}

	if err := h.convSvc.Complete(r.Context(), sessionID); err != nil {
		log.Printf("[stream] complete cycle: %v", err)
	}
	h.sendSSE(w, flusher, Frame{Event: "end", TurnID: turnID, Finished: true})

	log.Printf("[stream] completed response for session=%s", sessionID)
}

// readAttachment pulls the optional PDF out of the form. A missing file is
// not an error.
func (h *Handler) readAttachment(r *http.Request) (*chat.Document, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer file.Close()

	if header.Size > chat.MaxDocumentBytes {
		return nil, chat.ErrDocumentTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, chat.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if len(data) > chat.MaxDocumentBytes {
		return nil, chat.ErrDocumentTooLarge
	}

	return chat.NewDocument(header.Filename, data)
}

// rejectAttachment distinguishes an invalid selection, which is rejected
// without state changes, from a read failure, which leaves an error turn.
func (h *Handler) rejectAttachment(w http.ResponseWriter, r *http.Request, sessionID string, cause error) {
	switch {
	case errors.Is(cause, chat.ErrDocumentTooLarge),
		errors.Is(cause, chat.ErrUnsupportedDocument),
		errors.Is(cause, chat.ErrDocumentEmpty):
		utils.RespondError(w, http.StatusBadRequest, cause.Error())
	default:
		if err := h.convSvc.Fail(r.Context(), sessionID, "failed to read the attached document"); err != nil {
			log.Printf("[stream] record read failure: %v", err)
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to read the attached document")
	}
}

// failCycle records the failure as an extra assistant turn and tells the
// client before ending the stream.
func (h *Handler) failCycle(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, cause error) {
	if err := h.convSvc.Fail(ctx, sessionID, cause.Error()); err != nil {
		log.Printf("[stream] record failure: %v", err)
	}

	h.sendSSE(w, flusher, Frame{Event: "error", Error: cause.Error()})
	h.sendSSE(w, flusher, Frame{Event: "end", Finished: true})
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("failed to marshal SSE frame: %v", err)
		return
	}

	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
