package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
)

const sessionLockStripes = 64

// InboundResult reports what the pipeline did with one channel event.
type InboundResult struct {
	Deduped bool
	Queued  bool
	Reply   string
}

// IngestUsecase runs the inbound pipeline: admit through the dedup
// gate, record the user turn, route it, record the reply and queue it
// for channel delivery. Per-session ordering is enforced with striped
// locks so concurrent sessions never serialize on each other.
type IngestUsecase struct {
	store  repo.Store
	router *RouterUsecase
	outbox *OutboxUsecase
	log    *logrus.Logger

	locks [sessionLockStripes]sync.Mutex
}

// NewIngestUsecase creates a new ingest usecase.
func NewIngestUsecase(store repo.Store, router *RouterUsecase, outbox *OutboxUsecase, log *logrus.Logger) *IngestUsecase {
	return &IngestUsecase{store: store, router: router, outbox: outbox, log: log}
}

func (uc *IngestUsecase) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &uc.locks[h.Sum32()%sessionLockStripes]
}

// Admit records the inbound message if its external ID has not been
// seen for the session. It returns false when the message is a
// duplicate. The check and the write are a single atomic store
// operation, so concurrent deliveries of the same ID admit exactly one.
func (uc *IngestUsecase) Admit(ctx context.Context, rec *domain.InboundRecord) (bool, error) {
	created, err := uc.store.AddInbound(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("admit inbound: %w", err)
	}
	return created, nil
}

// HandleInbound processes one channel event end to end. Duplicates
// short-circuit with no side effects beyond the gate itself. The
// generative fallback runs outside the session lock; only the history
// writes and the outbox enqueue are serialized per session.
func (uc *IngestUsecase) HandleInbound(ctx context.Context, rec *domain.InboundRecord) (*InboundResult, error) {
	created, err := uc.Admit(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		uc.log.WithFields(logrus.Fields{
			"session_id": rec.SessionID,
			"inbound_id": rec.ID,
		}).Debug("duplicate inbound dropped")
		return &InboundResult{Deduped: true}, nil
	}

	mu := uc.sessionLock(rec.SessionID)
	mu.Lock()
	if err := uc.store.AppendMessage(ctx, rec.SessionID, domain.RoleUser, rec.Text); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("append user message: %w", err)
	}
	mu.Unlock()

	reply, err := uc.router.Route(ctx, rec.SessionID, rec.Text)
	if err != nil {
		return nil, fmt.Errorf("route inbound: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if err := uc.store.AppendMessage(ctx, rec.SessionID, domain.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}
	if _, err := uc.outbox.Enqueue(ctx, rec.SessionID, reply, domain.ReasonChannelReply); err != nil {
		return nil, fmt.Errorf("queue reply: %w", err)
	}

	return &InboundResult{Queued: true, Reply: reply}, nil
}

// HandleChat serves the direct chat surface. It bypasses the dedup
// gate (the caller has no external message ID) and does not queue the
// reply, since the response travels back on the same request.
func (uc *IngestUsecase) HandleChat(ctx context.Context, sessionID, text string) (string, error) {
	mu := uc.sessionLock(sessionID)
	mu.Lock()
	if err := uc.store.AppendMessage(ctx, sessionID, domain.RoleUser, text); err != nil {
		mu.Unlock()
		return "", fmt.Errorf("append user message: %w", err)
	}
	mu.Unlock()

	reply, err := uc.router.Route(ctx, sessionID, text)
	if err != nil {
		return "", fmt.Errorf("route chat: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if err := uc.store.AppendMessage(ctx, sessionID, domain.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("append reply: %w", err)
	}
	return reply, nil
}
