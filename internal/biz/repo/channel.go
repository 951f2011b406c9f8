package repo

import "context"

// Channel is the outbound side of the external chat platform. The
// send path is less reliable than ingestion; callers own retry
// bookkeeping through the outbox.
type Channel interface {
	SendText(ctx context.Context, channelID, text string) error
}
