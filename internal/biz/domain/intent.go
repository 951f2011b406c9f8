package domain

// IntentKind identifies which command a free-text message was
// classified into.
type IntentKind int

const (
	IntentAddTask IntentKind = iota
	IntentListTasks
	IntentCompleteTask
	IntentAddReminder
	IntentListReminders
	IntentCompleteReminder
	IntentCheckIn
	IntentDashboard
)

// Intent is the structured command parsed from a message. Only the
// fields relevant to Kind are populated.
type Intent struct {
	Kind IntentKind

	// AddTask
	Title string

	// CompleteTask / CompleteReminder
	TargetID string

	// AddReminder. Minutes is nil for an untimed reminder; the store
	// applies its default horizon in that case. A negative value is
	// valid and produces an already-overdue reminder.
	ReminderText string
	Minutes      *int

	// CheckIn
	Mood   string
	Energy int
	Focus  int
	Note   string
}
