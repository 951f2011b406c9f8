package repo

import (
	"context"
	"time"

	"github.com/minderhq/minder/internal/biz/domain"
)

// Store is the session record store contract. Every entity is scoped
// by session id; cross-session state does not exist. The store is the
// sole mutator of persisted records.
type Store interface {
	// Tasks
	AddTask(ctx context.Context, sessionID, title string) (*domain.Task, error)
	ListTasks(ctx context.Context, sessionID string) ([]*domain.Task, error)
	// CompleteTask returns false when the task id is unknown.
	CompleteTask(ctx context.Context, sessionID, taskID string) (bool, error)

	// Reminders. A nil due time means the store applies its default
	// horizon (60 minutes from now).
	AddReminder(ctx context.Context, sessionID, text string, due *time.Time) (*domain.Reminder, error)
	ListReminders(ctx context.Context, sessionID string) ([]*domain.Reminder, error)
	CompleteReminder(ctx context.Context, sessionID, reminderID string) (bool, error)

	// Check-ins
	AddCheckIn(ctx context.Context, sessionID, mood string, energy, focus int, note string) (*domain.CheckIn, error)
	ListCheckIns(ctx context.Context, sessionID string, limit int) ([]*domain.CheckIn, error)

	// Chat history
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	// History returns the last limit messages in chronological order.
	History(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error)

	// Inbound log. AddInbound is atomic with respect to the existence
	// check: it returns false without writing when the external id was
	// already recorded for the session.
	AddInbound(ctx context.Context, rec *domain.InboundRecord) (bool, error)
	HasInbound(ctx context.Context, sessionID, externalID string) (bool, error)
	ListInbound(ctx context.Context, sessionID string, limit int) ([]*domain.InboundRecord, error)

	// Outbox
	AddOutbox(ctx context.Context, sessionID, text, reason string) (*domain.OutboxEntry, error)
	// ListOutbox returns the last limit entries in chronological order.
	ListOutbox(ctx context.Context, sessionID string, limit int) ([]*domain.OutboxEntry, error)
	ListUndelivered(ctx context.Context, sessionID string) ([]*domain.OutboxEntry, error)
	LatestOutbox(ctx context.Context, sessionID string) (*domain.OutboxEntry, error)
	// MarkDelivered is idempotent and never touches the attempt
	// counter. Returns false when the entry id is unknown.
	MarkDelivered(ctx context.Context, sessionID, entryID string, deliveredAt time.Time) (bool, error)
	// RecordAttempt increments the failed-attempt counter and returns
	// the new count, or -1 when the entry id is unknown.
	RecordAttempt(ctx context.Context, sessionID, entryID string) (int, error)

	// Channel bindings
	BindChannel(ctx context.Context, sessionID, channelID string) error
	SessionByChannel(ctx context.Context, channelID string) (string, error)
	ListChannelBindings(ctx context.Context) (map[string]string, error)

	// Clear removes every record belonging to the session atomically.
	Clear(ctx context.Context, sessionID string) error

	Close() error
}
