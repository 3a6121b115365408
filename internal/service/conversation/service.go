package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docchat-app/docchat/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBusy            = errors.New("a response is already in progress")
	ErrEmptySubmission = errors.New("nothing to submit")
	ErrNotAwaiting     = errors.New("no response in progress")
)

const (
	errorTurnPrefix = "Error: "

	// genericFailure is shown when a provider fails without a message.
	genericFailure = "Something went wrong while generating a response."
)

type state int

const (
	stateIdle state = iota
	stateAwaiting
)

// conversationState is the ordered turn list plus the index of the assistant
// turn currently being streamed into. At most one turn is open at a time.
type conversationState struct {
	turns   []chat.Turn
	state   state
	openIdx int
}

// Service owns the per-session conversation state machines. Each cycle runs
// Idle -> AwaitingResponse -> Idle; the busy state, not locking, is what
// rejects a second submission while a response is streaming.
type Service struct {
	mu            sync.RWMutex
	sessions      map[string]chat.Session
	conversations map[string]*conversationState
}

// NewService bootstraps the in-memory conversation service.
func NewService() *Service {
	return &Service{
		sessions:      make(map[string]chat.Session),
		conversations: make(map[string]*conversationState),
	}
}

// CreateSession provisions an anonymous conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.conversations[session.ID] = &conversationState{
		turns:   make([]chat.Turn, 0, 16),
		openIdx: -1,
	}
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Transcript returns a copy of the stored turns for the session.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Turn, len(conv.turns))
	copy(copied, conv.turns)
	return copied, nil
}

// Begin validates a submission and, when accepted, appends the immutable user
// turn plus an empty assistant turn with a fresh id, then enters the awaiting
// state. It returns the history to serialize for the provider call (up to and
// including the new user turn) along with the id of the open assistant turn.
//
// A submission with neither text nor document is a no-op and leaves the
// conversation untouched.
func (s *Service) Begin(_ context.Context, sessionID, text string, doc *chat.Document) ([]chat.Turn, string, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, "", ErrSessionNotFound
	}
	if conv.state == stateAwaiting {
		return nil, "", ErrBusy
	}
	if text == "" && doc == nil {
		return nil, "", ErrEmptySubmission
	}

	now := time.Now().UTC()
	user := chat.Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Text:      text,
		Document:  doc,
		CreatedAt: now,
	}
	assistant := chat.Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		CreatedAt: now,
	}

	conv.turns = append(conv.turns, user, assistant)
	conv.openIdx = len(conv.turns) - 1
	conv.state = stateAwaiting

	history := make([]chat.Turn, len(conv.turns)-1)
	copy(history, conv.turns[:len(conv.turns)-1])
	return history, assistant.ID, nil
}

// AppendDelta concatenates a provider delta onto the open assistant turn.
// Deltas are applied strictly in arrival order; there is no reordering or
// buffering beyond the concatenation itself.
func (s *Service) AppendDelta(_ context.Context, sessionID, delta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if conv.state != stateAwaiting || conv.openIdx < 0 {
		return ErrNotAwaiting
	}

	conv.turns[conv.openIdx].Text += delta
	return nil
}

// Complete closes the current cycle. The open assistant turn keeps its fully
// concatenated text.
func (s *Service) Complete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if conv.state != stateAwaiting {
		return ErrNotAwaiting
	}

	conv.state = stateIdle
	conv.openIdx = -1
	return nil
}

// Fail appends an error-prefixed assistant turn and returns the conversation
// to idle. The open assistant turn, if any, stays in place with whatever
// content it accumulated; the error turn is appended in addition to it. Fail
// also works outside a cycle, for failures while processing an attachment.
func (s *Service) Fail(_ context.Context, sessionID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	if strings.TrimSpace(message) == "" {
		message = genericFailure
	}

	conv.turns = append(conv.turns, chat.Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		Text:      errorTurnPrefix + message,
		CreatedAt: time.Now().UTC(),
	})
	conv.state = stateIdle
	conv.openIdx = -1
	return nil
}
