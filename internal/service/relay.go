package service

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
	"github.com/minderhq/minder/internal/biz/usecase"
)

// RelayConfig tunes the channel relay.
type RelayConfig struct {
	// PollInterval is how often the outbox is drained.
	PollInterval time.Duration
	// MaxAttempts stops redelivery of an entry that keeps failing.
	MaxAttempts int
	// SeenTTL bounds the in-process duplicate cache in front of the
	// durable gate.
	SeenTTL time.Duration
}

// DefaultRelayConfig matches the service defaults.
var DefaultRelayConfig = RelayConfig{
	PollInterval: 5 * time.Second,
	MaxAttempts:  5,
	SeenTTL:      10 * time.Minute,
}

// RelayService connects the external channel to the ingest pipeline
// and drains the outbox back to the channel. Each channel maps to one
// session through the store's channel bindings.
type RelayService struct {
	store   repo.Store
	ingest  *usecase.IngestUsecase
	outbox  *usecase.OutboxUsecase
	channel repo.Channel
	cfg     RelayConfig
	log     *logrus.Logger

	// seen short-circuits duplicate deliveries without a store hit;
	// the durable inbound gate stays authoritative.
	seen *gocache.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRelayService creates a new relay service.
func NewRelayService(store repo.Store, ingest *usecase.IngestUsecase, outbox *usecase.OutboxUsecase, channel repo.Channel, cfg RelayConfig, log *logrus.Logger) *RelayService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultRelayConfig.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRelayConfig.MaxAttempts
	}
	if cfg.SeenTTL <= 0 {
		cfg.SeenTTL = DefaultRelayConfig.SeenTTL
	}
	return &RelayService{
		store:   store,
		ingest:  ingest,
		outbox:  outbox,
		channel: channel,
		cfg:     cfg,
		log:     log,
		seen:    gocache.New(cfg.SeenTTL, cfg.SeenTTL),
	}
}

// Start launches the outbox delivery loop.
func (s *RelayService) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.deliverLoop()
	s.log.WithField("interval", s.cfg.PollInterval).Info("relay started")
}

// Stop stops the delivery loop and waits for it to drain.
func (s *RelayService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("relay stopped")
}

// HandleChannelMessage feeds one inbound channel message through the
// pipeline. The channel is bound to its session on first contact. raw
// is the channel's opaque payload, kept on the inbound log verbatim.
func (s *RelayService) HandleChannelMessage(ctx context.Context, channelID, messageID, author, text, raw string, ts time.Time) {
	cacheKey := channelID + "/" + messageID
	if _, dup := s.seen.Get(cacheKey); dup {
		return
	}
	s.seen.Set(cacheKey, struct{}{}, gocache.DefaultExpiration)

	sessionID, err := s.store.SessionByChannel(ctx, channelID)
	if err != nil {
		s.log.WithError(err).Error("channel binding lookup failed")
		return
	}
	if sessionID == "" {
		sessionID = "channel:" + channelID
		if err := s.store.BindChannel(ctx, sessionID, channelID); err != nil {
			s.log.WithError(err).Error("channel binding failed")
			return
		}
	}

	rec := &domain.InboundRecord{
		ID:        messageID,
		SessionID: sessionID,
		Author:    author,
		Text:      text,
		Source:    "channel",
		Raw:       raw,
		Timestamp: ts,
	}
	result, err := s.ingest.HandleInbound(ctx, rec)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"channel_id": channelID,
		}).WithError(err).Error("inbound handling failed")
		return
	}
	if result.Deduped {
		return
	}
	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"channel_id": channelID,
	}).Debug("channel message processed")
}

func (s *RelayService) deliverLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.DeliverPending(s.ctx)
		}
	}
}

// DeliverPending sends every undelivered outbox entry of every bound
// session through the channel. Failures bump the attempt counter;
// entries past the attempt cap are left alone.
func (s *RelayService) DeliverPending(ctx context.Context) {
	bindings, err := s.store.ListChannelBindings(ctx)
	if err != nil {
		s.log.WithError(err).Error("channel binding listing failed")
		return
	}

	for channelID, sessionID := range bindings {
		entries, err := s.outbox.ListUndelivered(ctx, sessionID)
		if err != nil {
			s.log.WithField("session_id", sessionID).WithError(err).Error("outbox listing failed")
			continue
		}
		for _, entry := range entries {
			if entry.Attempts >= s.cfg.MaxAttempts {
				continue
			}
			if err := s.channel.SendText(ctx, channelID, entry.Text); err != nil {
				attempts, _ := s.outbox.RecordAttempt(ctx, sessionID, entry.ID)
				s.log.WithFields(logrus.Fields{
					"session_id": sessionID,
					"entry_id":   entry.ID,
					"attempts":   attempts,
				}).WithError(err).Warn("delivery failed")
				continue
			}
			if _, err := s.outbox.MarkDelivered(ctx, sessionID, entry.ID, time.Now()); err != nil {
				s.log.WithField("entry_id", entry.ID).WithError(err).Error("delivery bookkeeping failed")
			}
		}
	}
}
