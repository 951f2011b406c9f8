package usecase

import (
	"testing"
	"time"

	"github.com/minderhq/minder/internal/biz/domain"
)

func TestParseIntentTasks(t *testing.T) {
	intent := ParseIntent("add task buy milk")
	if intent == nil || intent.Kind != domain.IntentAddTask {
		t.Fatalf("expected add-task intent, got %+v", intent)
	}
	if intent.Title != "buy milk" {
		t.Errorf("expected title 'buy milk', got %q", intent.Title)
	}

	intent = ParseIntent("todo water the plants")
	if intent == nil || intent.Kind != domain.IntentAddTask || intent.Title != "water the plants" {
		t.Errorf("todo trigger failed: %+v", intent)
	}

	// "remember" drops one word, so the "to" stays in the title.
	intent = ParseIntent("remember to call mom")
	if intent == nil || intent.Kind != domain.IntentAddTask || intent.Title != "to call mom" {
		t.Errorf("remember trigger failed: %+v", intent)
	}
}

func TestParseIntentNormalization(t *testing.T) {
	intent := ParseIntent("  ADD   Task   Buy Milk ")
	if intent == nil || intent.Kind != domain.IntentAddTask {
		t.Fatalf("expected add-task intent, got %+v", intent)
	}
	if intent.Title != "Buy Milk" {
		t.Errorf("expected original casing in title, got %q", intent.Title)
	}
}

func TestParseIntentReminders(t *testing.T) {
	intent := ParseIntent("remind me in 10 minutes to stretch")
	if intent == nil || intent.Kind != domain.IntentAddReminder {
		t.Fatalf("expected add-reminder intent, got %+v", intent)
	}
	if intent.Minutes == nil || *intent.Minutes != 10 {
		t.Errorf("expected 10 minutes, got %v", intent.Minutes)
	}
	if intent.ReminderText != "stretch" {
		t.Errorf("expected text 'stretch', got %q", intent.ReminderText)
	}

	// Singular "minute" and negative offsets are both accepted.
	intent = ParseIntent("remind me in 1 minute to breathe")
	if intent == nil || intent.Minutes == nil || *intent.Minutes != 1 {
		t.Errorf("singular form failed: %+v", intent)
	}
	intent = ParseIntent("remind me in -5 minutes to check the oven")
	if intent == nil || intent.Minutes == nil || *intent.Minutes != -5 {
		t.Errorf("negative minutes failed: %+v", intent)
	}

	intent = ParseIntent("remind me to drink water")
	if intent == nil || intent.Kind != domain.IntentAddReminder {
		t.Fatalf("expected untimed reminder, got %+v", intent)
	}
	if intent.Minutes != nil {
		t.Errorf("expected nil minutes, got %d", *intent.Minutes)
	}

	// A "remind me" prefix that matches neither sub-pattern falls
	// through and ends up unmatched.
	if intent := ParseIntent("remind me about the thing"); intent != nil {
		t.Errorf("expected fallthrough, got %+v", intent)
	}
}

func TestParseIntentListing(t *testing.T) {
	for _, text := range []string{"list reminders", "show my reminders please"} {
		intent := ParseIntent(text)
		if intent == nil || intent.Kind != domain.IntentListReminders {
			t.Errorf("%q: expected list-reminders, got %+v", text, intent)
		}
	}
	for _, text := range []string{"list tasks", "what are my tasks"} {
		intent := ParseIntent(text)
		if intent == nil || intent.Kind != domain.IntentListTasks {
			t.Errorf("%q: expected list-tasks, got %+v", text, intent)
		}
	}
}

func TestParseIntentCompletion(t *testing.T) {
	intent := ParseIntent("complete reminder r42")
	if intent == nil || intent.Kind != domain.IntentCompleteReminder || intent.TargetID != "r42" {
		t.Errorf("complete-reminder failed: %+v", intent)
	}

	intent = ParseIntent("complete t7")
	if intent == nil || intent.Kind != domain.IntentCompleteTask || intent.TargetID != "t7" {
		t.Errorf("complete-task failed: %+v", intent)
	}

	// The bare word "reminder" never routes to the task handler.
	if intent := ParseIntent("complete reminder"); intent != nil {
		t.Errorf("expected no match for bare 'complete reminder', got %+v", intent)
	}
}

func TestParseIntentCheckIn(t *testing.T) {
	intent := ParseIntent("check in mood=good energy=8 focus=7 note=solid")
	if intent == nil || intent.Kind != domain.IntentCheckIn {
		t.Fatalf("expected check-in intent, got %+v", intent)
	}
	if intent.Mood != "good" || intent.Energy != 8 || intent.Focus != 7 || intent.Note != "solid" {
		t.Errorf("field parsing failed: %+v", intent)
	}

	intent = ParseIntent("check in")
	if intent == nil || intent.Mood != "ok" || intent.Energy != 5 || intent.Focus != 5 || intent.Note != "" {
		t.Errorf("defaults failed: %+v", intent)
	}

	// Malformed numbers keep defaults; tokens without "=" are ignored.
	intent = ParseIntent("check in energy=high hello mood=meh")
	if intent == nil || intent.Energy != 5 || intent.Mood != "meh" {
		t.Errorf("malformed handling failed: %+v", intent)
	}
}

func TestParseIntentDashboard(t *testing.T) {
	for _, text := range []string{"today", "dashboard", "what's my plan", "Whats My Plan"} {
		intent := ParseIntent(text)
		if intent == nil || intent.Kind != domain.IntentDashboard {
			t.Errorf("%q: expected dashboard, got %+v", text, intent)
		}
	}
	// Only the exact phrases count.
	if intent := ParseIntent("today?"); intent != nil {
		t.Errorf("expected no match for 'today?', got %+v", intent)
	}
}

func TestParseIntentPrecedence(t *testing.T) {
	// Task creation outranks everything that follows.
	intent := ParseIntent("add task list tasks")
	if intent == nil || intent.Kind != domain.IntentAddTask || intent.Title != "list tasks" {
		t.Errorf("precedence failed: %+v", intent)
	}
}

func TestDueAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := DueAt(now, 10); !got.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("unexpected due time %v", got)
	}
	if got := DueAt(now, -5); !got.Before(now) {
		t.Errorf("negative minutes should land in the past, got %v", got)
	}
}
