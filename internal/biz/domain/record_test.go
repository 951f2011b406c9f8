package domain

import (
	"testing"
	"time"
)

func TestTask_Open(t *testing.T) {
	task := &Task{ID: "t1", Title: "Buy groceries"}
	if !task.Open() {
		t.Error("Expected a new task to be open")
	}

	task.Completed = true
	if task.Open() {
		t.Error("Expected a completed task to not be open")
	}
}

func TestReminder_OverdueAt(t *testing.T) {
	now := time.Now()

	past := &Reminder{ID: "r1", Text: "call back", DueAt: now.Add(-time.Hour)}
	if !past.OverdueAt(now) {
		t.Error("Expected a past-due open reminder to be overdue")
	}

	future := &Reminder{ID: "r2", Text: "appointment", DueAt: now.Add(time.Hour)}
	if future.OverdueAt(now) {
		t.Error("Expected a future reminder to not be overdue")
	}

	done := &Reminder{ID: "r3", Text: "call back", DueAt: now.Add(-time.Hour), Completed: true}
	if done.OverdueAt(now) {
		t.Error("Expected a completed reminder to not be overdue")
	}
}

func TestCheckIn_SameLocalDay(t *testing.T) {
	// Midday anchor keeps both offsets inside one calendar date.
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.Local)

	fresh := &CheckIn{ID: "c1", Mood: "ok", Timestamp: now.Add(-3 * time.Hour)}
	if !fresh.SameLocalDay(now) {
		t.Error("Expected a same-morning check-in to count as today")
	}

	stale := &CheckIn{ID: "c2", Mood: "ok", Timestamp: now.Add(-24 * time.Hour)}
	if stale.SameLocalDay(now) {
		t.Error("Expected yesterday's check-in to not count as today")
	}

	lateYesterday := &CheckIn{ID: "c3", Mood: "ok", Timestamp: now.Add(-13 * time.Hour)}
	if lateYesterday.SameLocalDay(now) {
		t.Error("Expected a check-in before midnight to not count as today")
	}
}

func TestMessage_IsUser(t *testing.T) {
	if !(&Message{Role: RoleUser}).IsUser() {
		t.Error("Expected a user message to report IsUser")
	}
	if (&Message{Role: RoleAssistant}).IsUser() {
		t.Error("Expected an assistant message to not report IsUser")
	}
}
