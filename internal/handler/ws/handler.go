package ws

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/docchat-app/docchat/internal/model/chat"
	"github.com/docchat-app/docchat/internal/service/ai"
	"github.com/docchat-app/docchat/internal/service/conversation"
)

// Replier abstracts the inference collaborator behind the one call the
// handler needs.
type Replier interface {
	StreamReply(ctx context.Context, history []chat.Turn) (ai.Stream, error)
}

// Handler is the WebSocket transport variant of the submit-and-stream cycle.
// Same state machine, same single-in-flight rule as the SSE route.
type Handler struct {
	replier  Replier
	convSvc  *conversation.Service
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler.
func New(replier Replier, convSvc *conversation.Service) *Handler {
	return &Handler{
		replier: replier,
		convSvc: convSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string       `json:"type"`
	Text string       `json:"text"`
	File *inboundFile `json:"file,omitempty"`
}

// inboundFile carries the picked document; Data is base64 on the wire.
type inboundFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	TurnID  string `json:"turnId,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.convSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read failed for session=%s: %v", sessionID, err)
			}
			return
		}

		if msg.Type != "message" {
			h.writeError(conn, "unsupported message type")
			continue
		}

		h.runCycle(r.Context(), conn, sessionID, msg)
	}
}

// runCycle executes one submit-and-stream cycle over the connection.
func (h *Handler) runCycle(ctx context.Context, conn *websocket.Conn, sessionID string, msg inboundMessage) {
	var doc *chat.Document
	if msg.File != nil {
		var err error
		doc, err = chat.NewDocument(msg.File.Name, msg.File.Data)
		if err != nil {
			// Invalid selection: reject without touching the conversation.
			h.writeError(conn, err.Error())
			return
		}
	}

	history, turnID, err := h.convSvc.Begin(ctx, sessionID, msg.Text, doc)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptySubmission) {
			return
		}
		h.writeError(conn, err.Error())
		return
	}

	h.write(conn, outboundMessage{Type: "start", TurnID: turnID})

	stream, err := h.replier.StreamReply(ctx, history)
	if err != nil {
		h.failCycle(ctx, conn, sessionID, err)
		return
	}
	defer stream.Close()

	for {
		delta, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.failCycle(ctx, conn, sessionID, recvErr)
			return
		}
		if delta == "" {
			continue
		}

		if err := h.convSvc.AppendDelta(ctx, sessionID, delta); err != nil {
			log.Printf("[ws] append delta: %v", err)
		}
		h.write(conn, outboundMessage{Type: "delta", TurnID: turnID, Content: delta})
	}

	if err := h.convSvc.Complete(ctx, sessionID); err != nil {
		log.Printf("[ws] complete cycle: %v", err)
	}
	h.write(conn, outboundMessage{Type: "end", TurnID: turnID})
}

func (h *Handler) failCycle(ctx context.Context, conn *websocket.Conn, sessionID string, cause error) {
	if err := h.convSvc.Fail(ctx, sessionID, cause.Error()); err != nil {
		log.Printf("[ws] record failure: %v", err)
	}

	h.writeError(conn, cause.Error())
	h.write(conn, outboundMessage{Type: "end"})
}

func (h *Handler) write(conn *websocket.Conn, msg outboundMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[ws] write failed: %v", err)
	}
}

func (h *Handler) writeError(conn *websocket.Conn, message string) {
	h.write(conn, outboundMessage{Type: "error", Error: message})
}
