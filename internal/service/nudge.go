package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/repo"
	"github.com/minderhq/minder/internal/biz/usecase"
)

// NudgeScheduler periodically evaluates every bound session for a
// proactive message and queues the result to the outbox. The relay
// picks queued nudges up on its own cadence.
type NudgeScheduler struct {
	store    repo.Store
	nudge    *usecase.NudgeUsecase
	interval time.Duration
	log      *logrus.Logger

	cron *cron.Cron
}

// NewNudgeScheduler creates a new nudge scheduler.
func NewNudgeScheduler(store repo.Store, nudge *usecase.NudgeUsecase, interval time.Duration, log *logrus.Logger) *NudgeScheduler {
	return &NudgeScheduler{
		store:    store,
		nudge:    nudge,
		interval: interval,
		log:      log,
	}
}

// Start schedules the periodic tick.
func (s *NudgeScheduler) Start() error {
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("failed to schedule nudge tick: %w", err)
	}
	s.cron.Start()
	s.log.WithField("interval", s.interval).Info("nudge scheduler started")
	return nil
}

// Stop cancels the schedule and waits for a running tick to finish.
func (s *NudgeScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.log.Info("nudge scheduler stopped")
}

func (s *NudgeScheduler) tick() {
	ctx := context.Background()
	s.TickAll(ctx, time.Now())
}

// TickAll evaluates every bound session once.
func (s *NudgeScheduler) TickAll(ctx context.Context, now time.Time) {
	bindings, err := s.store.ListChannelBindings(ctx)
	if err != nil {
		s.log.WithError(err).Error("channel binding listing failed")
		return
	}

	for _, sessionID := range bindings {
		entry, err := s.nudge.Tick(ctx, sessionID, now)
		if err != nil {
			s.log.WithField("session_id", sessionID).WithError(err).Error("nudge tick failed")
			continue
		}
		if entry != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"entry_id":   entry.ID,
			}).Info("nudge queued")
		}
	}
}
