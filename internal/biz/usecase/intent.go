package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/minderhq/minder/internal/biz/domain"
)

// Command grammar patterns. Matching runs on whitespace-normalized
// text, so the patterns never need to tolerate repeated spaces.
var (
	remindInRe         = regexp.MustCompile(`(?i)^remind me in (-?\d+) minutes? to (.+)$`)
	remindToRe         = regexp.MustCompile(`(?i)^remind me to (.+)$`)
	completeReminderRe = regexp.MustCompile(`(?i)^complete reminder (\S+)$`)
	completeRe         = regexp.MustCompile(`(?i)^complete (\S+)$`)
)

// ParseIntent classifies free text into a structured command, or nil
// when no rule matches and the caller should fall back to the
// generative replier. Rules are evaluated in fixed precedence order;
// the first match wins. Matching is case-insensitive and tolerant of
// repeated internal whitespace.
func ParseIntent(text string) *domain.Intent {
	norm := strings.Join(strings.Fields(text), " ")
	lower := strings.ToLower(norm)

	// 1. Task creation triggers. "add task" drops both of its own
	// words; "todo" and "remember" drop only one, so "remember to X"
	// keeps the "to" in the title.
	switch {
	case strings.HasPrefix(lower, "add task"):
		return &domain.Intent{Kind: domain.IntentAddTask, Title: lastField(norm, 2)}
	case strings.HasPrefix(lower, "todo"), strings.HasPrefix(lower, "remember to"):
		return &domain.Intent{Kind: domain.IntentAddTask, Title: lastField(norm, 1)}
	}

	// 2. Reminders. A "remind me" prefix that matches neither
	// sub-pattern falls through to the later rules instead of
	// erroring.
	if strings.HasPrefix(lower, "remind me") {
		if m := remindInRe.FindStringSubmatch(norm); m != nil {
			if minutes, err := strconv.Atoi(m[1]); err == nil {
				return &domain.Intent{Kind: domain.IntentAddReminder, ReminderText: m[2], Minutes: &minutes}
			}
		}
		if m := remindToRe.FindStringSubmatch(norm); m != nil {
			return &domain.Intent{Kind: domain.IntentAddReminder, ReminderText: m[1]}
		}
	}

	// 3. Reminder listing.
	if strings.Contains(lower, "list reminders") || strings.Contains(lower, "my reminders") {
		return &domain.Intent{Kind: domain.IntentListReminders}
	}

	// 4. Reminder completion. Must run before the task-completion rule
	// so "complete reminder <id>" never routes to the task handler.
	if m := completeReminderRe.FindStringSubmatch(norm); m != nil {
		return &domain.Intent{Kind: domain.IntentCompleteReminder, TargetID: m[1]}
	}

	// 5. Check-in with key=value fields.
	if strings.HasPrefix(lower, "check in") {
		return parseCheckIn(norm[len("check in"):])
	}

	// 6. Dashboard, exact phrases only.
	switch lower {
	case "today", "dashboard", "what's my plan", "whats my plan":
		return &domain.Intent{Kind: domain.IntentDashboard}
	}

	// 7. Task listing.
	if strings.Contains(lower, "list tasks") || strings.Contains(lower, "my tasks") {
		return &domain.Intent{Kind: domain.IntentListTasks}
	}

	// 8. Task completion. The literal token "reminder" is excluded:
	// that shape belongs to rule 4.
	if m := completeRe.FindStringSubmatch(norm); m != nil && !strings.EqualFold(m[1], "reminder") {
		return &domain.Intent{Kind: domain.IntentCompleteTask, TargetID: m[1]}
	}

	return nil
}

// parseCheckIn reads the remainder of a "check in" message as
// whitespace-separated key=value tokens. Tokens without "=" and
// unknown keys are ignored; malformed numbers keep their defaults.
func parseCheckIn(rest string) *domain.Intent {
	rest = strings.TrimLeft(rest, ": ")
	intent := &domain.Intent{Kind: domain.IntentCheckIn, Mood: "ok", Energy: 5, Focus: 5}

	for _, tok := range strings.Fields(rest) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "mood":
			intent.Mood = val
		case "energy":
			if n, err := strconv.Atoi(val); err == nil {
				intent.Energy = n
			}
		case "focus":
			if n, err := strconv.Atoi(val); err == nil {
				intent.Focus = n
			}
		case "note":
			intent.Note = val
		}
	}
	return intent
}

// lastField returns the text after the first n space-separated words.
// With fewer than n+1 words it returns the last word, mirroring a
// maxsplit-style split.
func lastField(text string, n int) string {
	parts := strings.SplitN(text, " ", n+1)
	return parts[len(parts)-1]
}

// DueAt converts a relative-minutes phrase into an absolute due
// timestamp. Minutes may be negative, producing an already-overdue
// due time.
func DueAt(now time.Time, minutes int) time.Time {
	return now.Add(time.Duration(minutes) * time.Minute)
}
