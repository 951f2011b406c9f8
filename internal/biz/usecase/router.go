package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
)

// RouterConfig tunes the intent router.
type RouterConfig struct {
	// HistoryLimit is how many recent messages frame the generative
	// fallback call.
	HistoryLimit int
	// FallbackReply is returned when the generative collaborator
	// fails. Deterministic so the user never sees a raw error.
	FallbackReply string
}

// DefaultRouterConfig is the stock router configuration.
var DefaultRouterConfig = RouterConfig{
	HistoryLimit:  12,
	FallbackReply: "I can't reach my reply engine right now. Your message was saved; try again in a moment.",
}

// RouterUsecase classifies incoming text and either dispatches the
// matched command against the store or delegates to the generative
// replier. It performs no history writes itself; callers append both
// sides of the exchange.
type RouterUsecase struct {
	store   repo.Store
	replier repo.Replier
	cfg     RouterConfig
	log     *logrus.Logger
}

// NewRouterUsecase creates a new router usecase.
func NewRouterUsecase(store repo.Store, replier repo.Replier, cfg RouterConfig, log *logrus.Logger) *RouterUsecase {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultRouterConfig.HistoryLimit
	}
	if cfg.FallbackReply == "" {
		cfg.FallbackReply = DefaultRouterConfig.FallbackReply
	}
	return &RouterUsecase{store: store, replier: replier, cfg: cfg, log: log}
}

// Route produces the reply for one inbound message. Command matches
// always resolve to a fixed reply string; only the generative path can
// take noticeable time, and that path holds no session lock.
func (uc *RouterUsecase) Route(ctx context.Context, sessionID, text string) (string, error) {
	intent := ParseIntent(text)
	if intent == nil {
		return uc.generate(ctx, sessionID, text)
	}

	switch intent.Kind {
	case domain.IntentAddTask:
		return uc.addTask(ctx, sessionID, intent.Title)
	case domain.IntentListTasks:
		return uc.listTasks(ctx, sessionID)
	case domain.IntentCompleteTask:
		return uc.completeTask(ctx, sessionID, intent.TargetID)
	case domain.IntentAddReminder:
		return uc.addReminder(ctx, sessionID, intent)
	case domain.IntentListReminders:
		return uc.listReminders(ctx, sessionID)
	case domain.IntentCompleteReminder:
		return uc.completeReminder(ctx, sessionID, intent.TargetID)
	case domain.IntentCheckIn:
		return uc.checkIn(ctx, sessionID, intent)
	case domain.IntentDashboard:
		return uc.dashboard(ctx, sessionID)
	default:
		return uc.generate(ctx, sessionID, text)
	}
}

func (uc *RouterUsecase) addTask(ctx context.Context, sessionID, title string) (string, error) {
	task, err := uc.store.AddTask(ctx, sessionID, title)
	if err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	return "Task added: " + task.Title, nil
}

func (uc *RouterUsecase) listTasks(ctx context.Context, sessionID string) (string, error) {
	tasks, err := uc.store.ListTasks(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return "You have no tasks.", nil
	}

	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("%s | %s %s", t.ID, statusMark(t.Completed), t.Title))
	}
	return strings.Join(lines, "\n"), nil
}

func (uc *RouterUsecase) completeTask(ctx context.Context, sessionID, taskID string) (string, error) {
	ok, err := uc.store.CompleteTask(ctx, sessionID, taskID)
	if err != nil {
		return "", fmt.Errorf("complete task: %w", err)
	}
	if !ok {
		return "Task not found.", nil
	}
	return "Task completed.", nil
}

func (uc *RouterUsecase) addReminder(ctx context.Context, sessionID string, intent *domain.Intent) (string, error) {
	var due *time.Time
	if intent.Minutes != nil {
		d := DueAt(time.Now(), *intent.Minutes)
		due = &d
	}

	rem, err := uc.store.AddReminder(ctx, sessionID, intent.ReminderText, due)
	if err != nil {
		return "", fmt.Errorf("add reminder: %w", err)
	}

	if intent.Minutes != nil {
		return fmt.Sprintf("Reminder set in %d minutes: %s", *intent.Minutes, rem.Text), nil
	}
	return "Reminder set: " + rem.Text, nil
}

func (uc *RouterUsecase) listReminders(ctx context.Context, sessionID string) (string, error) {
	reminders, err := uc.store.ListReminders(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("list reminders: %w", err)
	}
	if len(reminders) == 0 {
		return "You have no reminders.", nil
	}

	lines := make([]string, 0, len(reminders))
	for _, r := range reminders {
		lines = append(lines, fmt.Sprintf("%s | %s %s (due %s)",
			r.ID, statusMark(r.Completed), r.Text, r.DueAt.Format(time.RFC3339)))
	}
	return strings.Join(lines, "\n"), nil
}

func (uc *RouterUsecase) completeReminder(ctx context.Context, sessionID, reminderID string) (string, error) {
	ok, err := uc.store.CompleteReminder(ctx, sessionID, reminderID)
	if err != nil {
		return "", fmt.Errorf("complete reminder: %w", err)
	}
	if !ok {
		return "Reminder not found.", nil
	}
	return "Reminder completed.", nil
}

func (uc *RouterUsecase) checkIn(ctx context.Context, sessionID string, intent *domain.Intent) (string, error) {
	_, err := uc.store.AddCheckIn(ctx, sessionID, intent.Mood, intent.Energy, intent.Focus, intent.Note)
	if err != nil {
		uc.log.WithFields(logrus.Fields{"session_id": sessionID}).WithError(err).Warn("check-in write failed")
		return "Failed to record check-in.", nil
	}
	return "Check-in recorded.", nil
}

func (uc *RouterUsecase) dashboard(ctx context.Context, sessionID string) (string, error) {
	tasks, err := uc.store.ListTasks(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("dashboard tasks: %w", err)
	}
	reminders, err := uc.store.ListReminders(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("dashboard reminders: %w", err)
	}
	checkins, err := uc.store.ListCheckIns(ctx, sessionID, 1)
	if err != nil {
		return "", fmt.Errorf("dashboard checkins: %w", err)
	}

	openTasks := 0
	for _, t := range tasks {
		if t.Open() {
			openTasks++
		}
	}
	openReminders := 0
	for _, r := range reminders {
		if !r.Completed {
			openReminders++
		}
	}

	summary := "no recent check-in"
	if len(checkins) > 0 {
		c := checkins[len(checkins)-1]
		summary = fmt.Sprintf("Last check-in: mood=%s energy=%d focus=%d", c.Mood, c.Energy, c.Focus)
	}

	return fmt.Sprintf("Open tasks: %d | Open reminders: %d | %s", openTasks, openReminders, summary), nil
}

// generate is the fallback path. The collaborator call can be slow and
// can fail; failures degrade to the configured deterministic reply.
func (uc *RouterUsecase) generate(ctx context.Context, sessionID, text string) (string, error) {
	history, err := uc.store.History(ctx, sessionID, uc.cfg.HistoryLimit)
	if err != nil {
		uc.log.WithFields(logrus.Fields{"session_id": sessionID}).WithError(err).Warn("history fetch failed")
		history = nil
	}

	reply, err := uc.replier.Generate(ctx, sessionID, text, history)
	if err != nil {
		uc.log.WithFields(logrus.Fields{"session_id": sessionID}).WithError(err).Warn("replier failed, using fallback")
		return uc.cfg.FallbackReply, nil
	}
	return reply, nil
}

func statusMark(completed bool) string {
	if completed {
		return "✓"
	}
	return "•"
}
