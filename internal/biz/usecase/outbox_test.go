package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/minderhq/minder/internal/biz/domain"
)

func TestOutboxDeliveryLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	outbox := NewOutboxUsecase(store, DefaultOutboxConfig)

	entry, err := outbox.Enqueue(ctx, "s1", "hello", domain.ReasonChannelReply)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Delivered || entry.Attempts != 0 {
		t.Fatalf("new entry must start undelivered with zero attempts: %+v", entry)
	}

	// Two failed sends, then success.
	if n, _ := outbox.RecordAttempt(ctx, "s1", entry.ID); n != 1 {
		t.Errorf("expected attempt count 1, got %d", n)
	}
	if n, _ := outbox.RecordAttempt(ctx, "s1", entry.ID); n != 2 {
		t.Errorf("expected attempt count 2, got %d", n)
	}

	at := time.Now()
	ok, err := outbox.MarkDelivered(ctx, "s1", entry.ID, at)
	if err != nil || !ok {
		t.Fatalf("mark delivered: ok=%v err=%v", ok, err)
	}

	pending, _ := outbox.ListUndelivered(ctx, "s1")
	if len(pending) != 0 {
		t.Errorf("expected no pending entries, got %d", len(pending))
	}

	// Delivery never resets the failure counter.
	entries, _ := outbox.List(ctx, "s1", 0)
	if entries[0].Attempts != 2 {
		t.Errorf("attempts must survive delivery, got %d", entries[0].Attempts)
	}

	// Repeated delivery is idempotent and keeps the first timestamp.
	later := at.Add(time.Hour)
	if ok, _ := outbox.MarkDelivered(ctx, "s1", entry.ID, later); !ok {
		t.Error("repeat delivery must still report true")
	}
	entries, _ = outbox.List(ctx, "s1", 0)
	if entries[0].DeliveredAt == nil || !entries[0].DeliveredAt.Equal(at) {
		t.Errorf("delivered_at must keep the first value, got %v", entries[0].DeliveredAt)
	}
}

func TestOutboxUnknownEntry(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutboxUsecase(newMemStore(), DefaultOutboxConfig)

	ok, err := outbox.MarkDelivered(ctx, "s1", "missing", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unknown entry must report false")
	}

	n, err := outbox.RecordAttempt(ctx, "s1", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if n != -1 {
		t.Errorf("unknown entry must report -1, got %d", n)
	}
}

func TestOutboxSuppression(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	outbox := NewOutboxUsecase(store, OutboxConfig{SuppressWindow: 60 * time.Minute})

	now := time.Now()
	if suppress, _ := outbox.ShouldSuppress(ctx, "s1", "nudge text", now); suppress {
		t.Error("empty outbox must not suppress")
	}

	if _, err := outbox.Enqueue(ctx, "s1", "nudge text", domain.ReasonProactiveTick); err != nil {
		t.Fatal(err)
	}

	if suppress, _ := outbox.ShouldSuppress(ctx, "s1", "nudge text", now); !suppress {
		t.Error("identical text inside the window must suppress")
	}
	if suppress, _ := outbox.ShouldSuppress(ctx, "s1", "other text", now); suppress {
		t.Error("different text must not suppress")
	}
	if suppress, _ := outbox.ShouldSuppress(ctx, "s1", "nudge text", now.Add(2*time.Hour)); suppress {
		t.Error("expired window must not suppress")
	}

	// Only the most recent entry is consulted.
	if _, err := outbox.Enqueue(ctx, "s1", "a reply", domain.ReasonChannelReply); err != nil {
		t.Fatal(err)
	}
	if suppress, _ := outbox.ShouldSuppress(ctx, "s1", "nudge text", now); suppress {
		t.Error("older matching entry must not suppress")
	}
}
