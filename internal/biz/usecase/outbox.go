package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
)

// OutboxConfig tunes outbox behavior.
type OutboxConfig struct {
	// SuppressWindow is how long an identical queued text blocks a
	// repeat enqueue on the proactive path.
	SuppressWindow time.Duration
}

// DefaultOutboxConfig is the stock tracker configuration.
var DefaultOutboxConfig = OutboxConfig{
	SuppressWindow: 60 * time.Minute,
}

// OutboxUsecase tracks queued outbound messages and their delivery
// lifecycle. Attempts count failures only; a successful delivery marks
// the entry without touching the counter.
type OutboxUsecase struct {
	store repo.Store
	cfg   OutboxConfig
}

// NewOutboxUsecase creates a new outbox usecase.
func NewOutboxUsecase(store repo.Store, cfg OutboxConfig) *OutboxUsecase {
	if cfg.SuppressWindow <= 0 {
		cfg.SuppressWindow = DefaultOutboxConfig.SuppressWindow
	}
	return &OutboxUsecase{store: store, cfg: cfg}
}

// Enqueue appends a new undelivered entry with zero attempts.
func (uc *OutboxUsecase) Enqueue(ctx context.Context, sessionID, text, reason string) (*domain.OutboxEntry, error) {
	entry, err := uc.store.AddOutbox(ctx, sessionID, text, reason)
	if err != nil {
		return nil, fmt.Errorf("enqueue outbox: %w", err)
	}
	return entry, nil
}

// List returns the most recent entries for a session, oldest first.
func (uc *OutboxUsecase) List(ctx context.Context, sessionID string, limit int) ([]*domain.OutboxEntry, error) {
	return uc.store.ListOutbox(ctx, sessionID, limit)
}

// ListUndelivered returns pending entries for a session, oldest first.
func (uc *OutboxUsecase) ListUndelivered(ctx context.Context, sessionID string) ([]*domain.OutboxEntry, error) {
	return uc.store.ListUndelivered(ctx, sessionID)
}

// MarkDelivered flags an entry as delivered. It is idempotent: the
// first call sets the delivery time, repeats keep the original one.
// Returns false when the entry does not exist.
func (uc *OutboxUsecase) MarkDelivered(ctx context.Context, sessionID, entryID string, at time.Time) (bool, error) {
	ok, err := uc.store.MarkDelivered(ctx, sessionID, entryID, at)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	return ok, nil
}

// RecordAttempt increments the failure counter for an entry and
// returns the new count, or -1 when the entry does not exist.
func (uc *OutboxUsecase) RecordAttempt(ctx context.Context, sessionID, entryID string) (int, error) {
	n, err := uc.store.RecordAttempt(ctx, sessionID, entryID)
	if err != nil {
		return -1, fmt.Errorf("record attempt: %w", err)
	}
	return n, nil
}

// ShouldSuppress reports whether text matches the session's most
// recent queued entry inside the suppression window. The match is on
// exact text, delivered or not.
func (uc *OutboxUsecase) ShouldSuppress(ctx context.Context, sessionID, text string, now time.Time) (bool, error) {
	last, err := uc.store.LatestOutbox(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("latest outbox: %w", err)
	}
	if last == nil {
		return false, nil
	}
	if last.Text != text {
		return false, nil
	}
	return now.Sub(last.CreatedAt) < uc.cfg.SuppressWindow, nil
}
