package domain

import "time"

// InboundRecord logs one message received from an external channel.
// The ID is the channel's own message identifier; its uniqueness per
// session is the deduplication invariant: the same ID must never be
// processed twice for a session.
type InboundRecord struct {
	ID        string
	SessionID string
	Author    string
	Text      string
	Source    string
	Raw       string
	Timestamp time.Time
}
