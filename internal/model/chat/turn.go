package chat

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. User turns are immutable once
// appended; the assistant turn of the current cycle grows by delta
// concatenation until the cycle closes.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Document  *Document `json:"document,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
