package ai

import (
	"context"

	"github.com/docchat-app/docchat/internal/model/chat"
)

// Block is one piece of message content sent to a provider.
type Block interface {
	isBlock()
}

// TextBlock carries plain text.
type TextBlock struct {
	Text string
}

func (TextBlock) isBlock() {}

// DocumentBlock carries a named document as raw bytes.
type DocumentBlock struct {
	Name   string
	Format string
	Data   []byte
}

func (DocumentBlock) isBlock() {}

// Message is one turn re-expressed in the provider wire shape.
type Message struct {
	Role   chat.Role
	Blocks []Block
}

// Request carries everything for a single inference call: the fixed system
// instruction, the ordered message history ending with the new user message,
// and the fixed inference parameters.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Stream yields assistant text deltas in the exact order the provider emits
// them. Recv returns io.EOF on normal completion.
type Stream interface {
	Recv() (string, error)
	Close()
}

// Provider is the narrow collaborator interface; swapping providers touches
// only the adapter behind it.
type Provider interface {
	Invoke(ctx context.Context, req Request) (Stream, error)
	Close() error
}
