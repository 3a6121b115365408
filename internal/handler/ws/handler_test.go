package ws

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/docchat-app/docchat/internal/model/chat"
	"github.com/docchat-app/docchat/internal/service/ai"
	"github.com/docchat-app/docchat/internal/service/conversation"
)

type scriptedReplier struct {
	deltas []string
}

func (s *scriptedReplier) StreamReply(_ context.Context, _ []chat.Turn) (ai.Stream, error) {
	return &scriptedStream{deltas: s.deltas}, nil
}

type scriptedStream struct {
	deltas []string
	pos    int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos < len(s.deltas) {
		delta := s.deltas[s.pos]
		s.pos++
		return delta, nil
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() {}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWebSocketChatCycle(t *testing.T) {
	convSvc := conversation.NewService()
	handler := New(&scriptedReplier{deltas: []string{"Hel", "lo", " world"}}, convSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	session, err := convSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	conn := dial(t, server, session.ID)
	defer conn.Close()

	if err := conn.WriteJSON(inboundMessage{Type: "message", Text: "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got strings.Builder
	for {
		var msg outboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}

		switch msg.Type {
		case "start":
		case "delta":
			got.WriteString(msg.Content)
		case "end":
			if got.String() != "Hello world" {
				t.Fatalf("unexpected streamed text: %q", got.String())
			}

			turns, err := convSvc.Transcript(context.Background(), session.ID)
			if err != nil {
				t.Fatalf("Transcript err: %v", err)
			}
			if len(turns) != 2 || turns[1].Text != "Hello world" {
				t.Fatalf("unexpected transcript: %+v", turns)
			}
			return
		default:
			t.Fatalf("unexpected frame: %+v", msg)
		}
	}
}

func TestWebSocketRejectsInvalidAttachment(t *testing.T) {
	convSvc := conversation.NewService()
	handler := New(&scriptedReplier{}, convSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	session, err := convSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	conn := dial(t, server, session.ID)
	defer conn.Close()

	msg := inboundMessage{
		Type: "message",
		Text: "look",
		File: &inboundFile{Name: "notes.pdf", Data: []byte("not a pdf")},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	var reply outboundMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "error" {
		t.Fatalf("expected an error frame, got %+v", reply)
	}

	turns, err := convSvc.Transcript(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("invalid attachment mutated conversation: %d turns", len(turns))
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	convSvc := conversation.NewService()
	handler := New(&scriptedReplier{}, convSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/missing"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("expected dial to fail for an unknown session")
	}
}
