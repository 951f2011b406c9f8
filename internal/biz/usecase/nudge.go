package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
)

// NudgeConfig tunes the proactive evaluator.
type NudgeConfig struct {
	// OpenTaskThreshold is the minimum open task count that triggers
	// the focus nudge.
	OpenTaskThreshold int
}

// DefaultNudgeConfig is the stock evaluator configuration.
var DefaultNudgeConfig = NudgeConfig{
	OpenTaskThreshold: 3,
}

// NudgeUsecase evaluates whether a session deserves a proactive
// message. Rules are checked in a fixed order; the first hit wins.
type NudgeUsecase struct {
	store  repo.Store
	outbox *OutboxUsecase
	cfg    NudgeConfig
	log    *logrus.Logger
}

// NewNudgeUsecase creates a new nudge usecase.
func NewNudgeUsecase(store repo.Store, outbox *OutboxUsecase, cfg NudgeConfig, log *logrus.Logger) *NudgeUsecase {
	if cfg.OpenTaskThreshold <= 0 {
		cfg.OpenTaskThreshold = DefaultNudgeConfig.OpenTaskThreshold
	}
	return &NudgeUsecase{store: store, outbox: outbox, cfg: cfg, log: log}
}

// Evaluate returns the nudge text for a session, or "" when no rule
// fires. Read-only: it never writes to the store.
func (uc *NudgeUsecase) Evaluate(ctx context.Context, sessionID string, now time.Time) (string, error) {
	checkins, err := uc.store.ListCheckIns(ctx, sessionID, 1)
	if err != nil {
		return "", fmt.Errorf("nudge checkins: %w", err)
	}
	checkedInToday := false
	for _, c := range checkins {
		if c.SameLocalDay(now) {
			checkedInToday = true
			break
		}
	}
	if !checkedInToday {
		return "Quick check-in: mood? energy (1-10)? focus (1-10)?", nil
	}

	reminders, err := uc.store.ListReminders(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("nudge reminders: %w", err)
	}
	overdue := 0
	for _, r := range reminders {
		if r.OverdueAt(now) {
			overdue++
		}
	}
	if overdue > 0 {
		return fmt.Sprintf("You have %d overdue reminders. Want to review them?", overdue), nil
	}

	tasks, err := uc.store.ListTasks(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("nudge tasks: %w", err)
	}
	open := 0
	for _, t := range tasks {
		if t.Open() {
			open++
		}
	}
	if open >= uc.cfg.OpenTaskThreshold {
		return fmt.Sprintf("You have %d open tasks. Want to pick one to focus on?", open), nil
	}

	return "", nil
}

// Tick evaluates one session and queues the result, unless the same
// text was queued within the suppression window. Returns the queued
// entry, or nil when nothing fired or the nudge was suppressed.
func (uc *NudgeUsecase) Tick(ctx context.Context, sessionID string, now time.Time) (*domain.OutboxEntry, error) {
	text, err := uc.Evaluate(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	suppress, err := uc.outbox.ShouldSuppress(ctx, sessionID, text, now)
	if err != nil {
		return nil, err
	}
	if suppress {
		uc.log.WithFields(logrus.Fields{"session_id": sessionID}).Debug("nudge suppressed")
		return nil, nil
	}

	entry, err := uc.outbox.Enqueue(ctx, sessionID, text, domain.ReasonProactiveTick)
	if err != nil {
		return nil, err
	}
	return entry, nil
}
