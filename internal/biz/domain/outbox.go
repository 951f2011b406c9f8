package domain

import "time"

// Outbox entry reasons.
const (
	ReasonChannelReply  = "channel_reply"
	ReasonProactiveTick = "proactive_tick"
)

// OutboxEntry is a message queued for delivery through the external
// channel. Delivered is monotonic false to true. Attempts counts
// failed deliveries only: an entry delivered on the first try keeps
// Attempts == 0.
type OutboxEntry struct {
	ID          string
	SessionID   string
	Text        string
	Reason      string
	Delivered   bool
	Attempts    int
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
