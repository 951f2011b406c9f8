package domain

import "time"

// Task is a user task. Completed is monotonic: once true it never
// goes back to false.
type Task struct {
	ID        string
	SessionID string
	Title     string
	Completed bool
	CreatedAt time.Time
}

// Open checks if the task is still open.
func (t *Task) Open() bool {
	return !t.Completed
}
