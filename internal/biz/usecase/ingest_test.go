package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
)

func newTestIngest(store *memStore, replier *mockReplier) *IngestUsecase {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	router := NewRouterUsecase(store, replier, DefaultRouterConfig, log)
	outbox := NewOutboxUsecase(store, DefaultOutboxConfig)
	return NewIngestUsecase(store, router, outbox, log)
}

func inboundRec(sessionID, id, text string) *domain.InboundRecord {
	return &domain.InboundRecord{
		ID:        id,
		SessionID: sessionID,
		Author:    "alice",
		Text:      text,
		Source:    "channel",
		Timestamp: time.Now(),
	}
}

func TestIngestPipeline(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ingest := newTestIngest(store, &mockReplier{reply: "hi"})

	res, err := ingest.HandleInbound(ctx, inboundRec("s1", "m1", "add task buy milk"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Deduped || !res.Queued {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Reply != "Task added: buy milk" {
		t.Errorf("unexpected reply %q", res.Reply)
	}

	history, _ := store.History(ctx, "s1", 0)
	if len(history) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(history))
	}
	if history[0].Role != domain.RoleUser || history[1].Role != domain.RoleAssistant {
		t.Errorf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}

	pending, _ := store.ListUndelivered(ctx, "s1")
	if len(pending) != 1 {
		t.Fatalf("expected 1 queued reply, got %d", len(pending))
	}
	if pending[0].Reason != domain.ReasonChannelReply {
		t.Errorf("unexpected reason %q", pending[0].Reason)
	}
	if pending[0].Text != res.Reply {
		t.Errorf("queued text %q does not match reply %q", pending[0].Text, res.Reply)
	}
}

func TestIngestDedup(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ingest := newTestIngest(store, &mockReplier{reply: "hi"})

	first, err := ingest.HandleInbound(ctx, inboundRec("s1", "m1", "add task buy milk"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Deduped {
		t.Fatal("first delivery must be admitted")
	}

	second, err := ingest.HandleInbound(ctx, inboundRec("s1", "m1", "add task buy milk"))
	if err != nil {
		t.Fatal(err)
	}
	if !second.Deduped || second.Queued {
		t.Fatalf("duplicate must short-circuit, got %+v", second)
	}

	// The duplicate leaves no trace beyond the gate itself.
	tasks, _ := store.ListTasks(ctx, "s1")
	if len(tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(tasks))
	}
	history, _ := store.History(ctx, "s1", 0)
	if len(history) != 2 {
		t.Errorf("expected 2 history messages, got %d", len(history))
	}
	records, _ := store.ListInbound(ctx, "s1", 0)
	if len(records) != 1 {
		t.Errorf("expected 1 inbound record, got %d", len(records))
	}
}

func TestIngestDedupScopedBySession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ingest := newTestIngest(store, &mockReplier{reply: "hi"})

	if _, err := ingest.HandleInbound(ctx, inboundRec("s1", "m1", "hello")); err != nil {
		t.Fatal(err)
	}
	res, err := ingest.HandleInbound(ctx, inboundRec("s2", "m1", "hello"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Deduped {
		t.Error("same external id in another session must be admitted")
	}
}

func TestIngestChat(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ingest := newTestIngest(store, &mockReplier{reply: "hi"})

	reply, err := ingest.HandleChat(ctx, "s1", "add task buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Task added: buy milk" {
		t.Errorf("unexpected reply %q", reply)
	}

	// Chat replies travel back on the request, not through the outbox.
	pending, _ := store.ListUndelivered(ctx, "s1")
	if len(pending) != 0 {
		t.Errorf("expected empty outbox, got %d entries", len(pending))
	}
}
