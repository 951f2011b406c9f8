package domain

import "time"

// Reminder is a user reminder with an absolute due time. The due time
// may already be in the past at creation (an overdue reminder); that is
// valid, not an error. Completed is monotonic false to true.
type Reminder struct {
	ID        string
	SessionID string
	Text      string
	DueAt     time.Time
	Completed bool
	CreatedAt time.Time
}

// OverdueAt checks if the reminder is overdue and still open at the
// given instant.
func (r *Reminder) OverdueAt(now time.Time) bool {
	return !r.Completed && r.DueAt.Before(now)
}
