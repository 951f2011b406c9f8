package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
	"github.com/minderhq/minder/internal/biz/usecase"
	"github.com/minderhq/minder/internal/data"
)

type fakeChannel struct {
	sent []string
	err  error
}

func (c *fakeChannel) SendText(ctx context.Context, channelID, text string) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, text)
	return nil
}

type stubReplier struct{}

func (stubReplier) Generate(ctx context.Context, sessionID, text string, history []*domain.Message) (string, error) {
	return "stub reply", nil
}

func newTestRelay(t *testing.T, channel repo.Channel) (repo.Store, *RelayService) {
	t.Helper()
	store, err := data.NewStore(filepath.Join(t.TempDir(), "minder.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	router := usecase.NewRouterUsecase(store, stubReplier{}, usecase.DefaultRouterConfig, log)
	outbox := usecase.NewOutboxUsecase(store, usecase.DefaultOutboxConfig)
	ingest := usecase.NewIngestUsecase(store, router, outbox, log)

	relay := NewRelayService(store, ingest, outbox, channel, RelayConfig{MaxAttempts: 2}, log)
	return store, relay
}

func TestRelayDeliverPending(t *testing.T) {
	ctx := context.Background()
	channel := &fakeChannel{}
	store, relay := newTestRelay(t, channel)

	if err := store.BindChannel(ctx, "s1", "chan-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddOutbox(ctx, "s1", "hello", domain.ReasonChannelReply); err != nil {
		t.Fatal(err)
	}

	relay.DeliverPending(ctx)

	if len(channel.sent) != 1 || channel.sent[0] != "hello" {
		t.Fatalf("unexpected sends %v", channel.sent)
	}
	pending, _ := store.ListUndelivered(ctx, "s1")
	if len(pending) != 0 {
		t.Errorf("expected drained outbox, got %d entries", len(pending))
	}

	entries, _ := store.ListOutbox(ctx, "s1", 0)
	if !entries[0].Delivered || entries[0].Attempts != 0 {
		t.Errorf("unexpected entry state %+v", entries[0])
	}
}

func TestRelayDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	channel := &fakeChannel{err: errors.New("send failed")}
	store, relay := newTestRelay(t, channel)

	if err := store.BindChannel(ctx, "s1", "chan-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddOutbox(ctx, "s1", "hello", domain.ReasonChannelReply); err != nil {
		t.Fatal(err)
	}

	// Two failing rounds reach the attempt cap; the third is a no-op.
	relay.DeliverPending(ctx)
	relay.DeliverPending(ctx)
	relay.DeliverPending(ctx)

	entries, _ := store.ListOutbox(ctx, "s1", 0)
	if entries[0].Delivered {
		t.Error("failed entry must stay undelivered")
	}
	if entries[0].Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", entries[0].Attempts)
	}

	// A later successful round ignores the capped entry.
	channel.err = nil
	relay.DeliverPending(ctx)
	if len(channel.sent) != 0 {
		t.Errorf("capped entry must not be retried, sent %v", channel.sent)
	}
}

func TestRelayHandleChannelMessage(t *testing.T) {
	ctx := context.Background()
	channel := &fakeChannel{}
	store, relay := newTestRelay(t, channel)

	relay.HandleChannelMessage(ctx, "chan-1", "m1", "alice", "add task buy milk", `{"text":"add task buy milk"}`, time.Now())

	sessionID, err := store.SessionByChannel(ctx, "chan-1")
	if err != nil {
		t.Fatal(err)
	}
	if sessionID != "channel:chan-1" {
		t.Fatalf("expected auto-bound session, got %q", sessionID)
	}

	inbound, _ := store.ListInbound(ctx, sessionID, 0)
	if len(inbound) != 1 || inbound[0].Raw != `{"text":"add task buy milk"}` {
		t.Fatalf("expected raw payload on the inbound log, got %+v", inbound)
	}

	tasks, _ := store.ListTasks(ctx, sessionID)
	if len(tasks) != 1 || tasks[0].Title != "buy milk" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	pending, _ := store.ListUndelivered(ctx, sessionID)
	if len(pending) != 1 || pending[0].Text != "Task added: buy milk" {
		t.Fatalf("unexpected queue %+v", pending)
	}

	// Redelivery of the same message id is dropped by the seen cache.
	relay.HandleChannelMessage(ctx, "chan-1", "m1", "alice", "add task buy milk", `{"text":"add task buy milk"}`, time.Now())
	tasks, _ = store.ListTasks(ctx, sessionID)
	if len(tasks) != 1 {
		t.Errorf("duplicate must not create a second task, got %d", len(tasks))
	}
}

func TestNudgeSchedulerTickAll(t *testing.T) {
	ctx := context.Background()
	channel := &fakeChannel{}
	store, _ := newTestRelay(t, channel)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	outbox := usecase.NewOutboxUsecase(store, usecase.DefaultOutboxConfig)
	nudge := usecase.NewNudgeUsecase(store, outbox, usecase.DefaultNudgeConfig, log)
	scheduler := NewNudgeScheduler(store, nudge, time.Minute, log)

	if err := store.BindChannel(ctx, "s1", "chan-1"); err != nil {
		t.Fatal(err)
	}

	scheduler.TickAll(ctx, time.Now())

	pending, _ := store.ListUndelivered(ctx, "s1")
	if len(pending) != 1 {
		t.Fatalf("expected 1 queued nudge, got %d", len(pending))
	}
	if pending[0].Reason != domain.ReasonProactiveTick {
		t.Errorf("unexpected reason %q", pending[0].Reason)
	}
}
