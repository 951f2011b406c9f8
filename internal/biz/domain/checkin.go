package domain

import "time"

// CheckIn records the user's self-reported state. Energy and focus are
// nominally 1-10 but not range-validated. Check-ins are append-only;
// the most recent one defines "today's" state.
type CheckIn struct {
	ID        string
	SessionID string
	Mood      string
	Energy    int
	Focus     int
	Note      string
	Timestamp time.Time
}

// SameLocalDay checks if the check-in falls on the same local calendar
// date as the given instant.
func (c *CheckIn) SameLocalDay(now time.Time) bool {
	y1, m1, d1 := c.Timestamp.Local().Date()
	y2, m2, d2 := now.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
