package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minderhq/minder/internal/biz/domain"
)

// Mock implementations

type memStore struct {
	seq       int
	tasks     map[string][]*domain.Task
	reminders map[string][]*domain.Reminder
	checkins  map[string][]*domain.CheckIn
	messages  map[string][]*domain.Message
	inbound   map[string][]*domain.InboundRecord
	outbox    map[string][]*domain.OutboxEntry
	bindings  map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		tasks:     make(map[string][]*domain.Task),
		reminders: make(map[string][]*domain.Reminder),
		checkins:  make(map[string][]*domain.CheckIn),
		messages:  make(map[string][]*domain.Message),
		inbound:   make(map[string][]*domain.InboundRecord),
		outbox:    make(map[string][]*domain.OutboxEntry),
		bindings:  make(map[string]string),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) AddTask(ctx context.Context, sessionID, title string) (*domain.Task, error) {
	t := &domain.Task{ID: m.nextID("t"), SessionID: sessionID, Title: title, CreatedAt: time.Now()}
	m.tasks[sessionID] = append(m.tasks[sessionID], t)
	return t, nil
}

func (m *memStore) ListTasks(ctx context.Context, sessionID string) ([]*domain.Task, error) {
	return m.tasks[sessionID], nil
}

func (m *memStore) CompleteTask(ctx context.Context, sessionID, taskID string) (bool, error) {
	for _, t := range m.tasks[sessionID] {
		if t.ID == taskID {
			t.Completed = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AddReminder(ctx context.Context, sessionID, text string, due *time.Time) (*domain.Reminder, error) {
	at := time.Now().Add(60 * time.Minute)
	if due != nil {
		at = *due
	}
	r := &domain.Reminder{ID: m.nextID("r"), SessionID: sessionID, Text: text, DueAt: at, CreatedAt: time.Now()}
	m.reminders[sessionID] = append(m.reminders[sessionID], r)
	return r, nil
}

func (m *memStore) ListReminders(ctx context.Context, sessionID string) ([]*domain.Reminder, error) {
	return m.reminders[sessionID], nil
}

func (m *memStore) CompleteReminder(ctx context.Context, sessionID, reminderID string) (bool, error) {
	for _, r := range m.reminders[sessionID] {
		if r.ID == reminderID {
			r.Completed = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AddCheckIn(ctx context.Context, sessionID, mood string, energy, focus int, note string) (*domain.CheckIn, error) {
	c := &domain.CheckIn{ID: m.nextID("c"), SessionID: sessionID, Mood: mood, Energy: energy, Focus: focus, Note: note, Timestamp: time.Now()}
	m.checkins[sessionID] = append(m.checkins[sessionID], c)
	return c, nil
}

func (m *memStore) ListCheckIns(ctx context.Context, sessionID string, limit int) ([]*domain.CheckIn, error) {
	list := m.checkins[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list, nil
}

func (m *memStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	m.messages[sessionID] = append(m.messages[sessionID], &domain.Message{
		SessionID: sessionID, Role: role, Content: content, Timestamp: time.Now(),
	})
	return nil
}

func (m *memStore) History(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error) {
	list := m.messages[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list, nil
}

func (m *memStore) AddInbound(ctx context.Context, rec *domain.InboundRecord) (bool, error) {
	for _, r := range m.inbound[rec.SessionID] {
		if r.ID == rec.ID {
			return false, nil
		}
	}
	m.inbound[rec.SessionID] = append(m.inbound[rec.SessionID], rec)
	return true, nil
}

func (m *memStore) HasInbound(ctx context.Context, sessionID, externalID string) (bool, error) {
	for _, r := range m.inbound[sessionID] {
		if r.ID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListInbound(ctx context.Context, sessionID string, limit int) ([]*domain.InboundRecord, error) {
	list := m.inbound[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list, nil
}

func (m *memStore) AddOutbox(ctx context.Context, sessionID, text, reason string) (*domain.OutboxEntry, error) {
	e := &domain.OutboxEntry{ID: m.nextID("o"), SessionID: sessionID, Text: text, Reason: reason, CreatedAt: time.Now()}
	m.outbox[sessionID] = append(m.outbox[sessionID], e)
	return e, nil
}

func (m *memStore) ListOutbox(ctx context.Context, sessionID string, limit int) ([]*domain.OutboxEntry, error) {
	list := m.outbox[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list, nil
}

func (m *memStore) ListUndelivered(ctx context.Context, sessionID string) ([]*domain.OutboxEntry, error) {
	var pending []*domain.OutboxEntry
	for _, e := range m.outbox[sessionID] {
		if !e.Delivered {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (m *memStore) LatestOutbox(ctx context.Context, sessionID string) (*domain.OutboxEntry, error) {
	list := m.outbox[sessionID]
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

func (m *memStore) MarkDelivered(ctx context.Context, sessionID, entryID string, deliveredAt time.Time) (bool, error) {
	for _, e := range m.outbox[sessionID] {
		if e.ID == entryID {
			if !e.Delivered {
				e.Delivered = true
				at := deliveredAt
				e.DeliveredAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RecordAttempt(ctx context.Context, sessionID, entryID string) (int, error) {
	for _, e := range m.outbox[sessionID] {
		if e.ID == entryID {
			e.Attempts++
			return e.Attempts, nil
		}
	}
	return -1, nil
}

func (m *memStore) BindChannel(ctx context.Context, sessionID, channelID string) error {
	m.bindings[channelID] = sessionID
	return nil
}

func (m *memStore) SessionByChannel(ctx context.Context, channelID string) (string, error) {
	return m.bindings[channelID], nil
}

func (m *memStore) ListChannelBindings(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.bindings))
	for k, v := range m.bindings {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Clear(ctx context.Context, sessionID string) error {
	delete(m.tasks, sessionID)
	delete(m.reminders, sessionID)
	delete(m.checkins, sessionID)
	delete(m.messages, sessionID)
	delete(m.inbound, sessionID)
	delete(m.outbox, sessionID)
	for ch, s := range m.bindings {
		if s == sessionID {
			delete(m.bindings, ch)
		}
	}
	return nil
}

func (m *memStore) Close() error { return nil }

type mockReplier struct {
	reply string
	err   error
	calls int
	last  []*domain.Message
}

func (m *mockReplier) Generate(ctx context.Context, sessionID, text string, history []*domain.Message) (string, error) {
	m.calls++
	m.last = history
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

var errReplierDown = errors.New("replier down")
