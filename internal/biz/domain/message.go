package domain

import "time"

// Message roles in the chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session's chat history.
// History is append-only and ordered by Timestamp.
type Message struct {
	SessionID string
	Role      string
	Content   string
	Timestamp time.Time
}

// IsUser checks if the message was written by the user.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}
