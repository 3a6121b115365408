package chat

import "time"

// Session captures one transient anonymous conversation. Everything lives in
// memory and is lost on restart.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
