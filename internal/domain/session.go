package domain

import "time"

// Session is a locally tracked work session recorded by the desktop tracker.
// Sessions carrying a matter ID are billable and eligible for syncing to the
// practice-management system; SyncedEntryID holds the remote time-entry ID
// once that has happened.
type Session struct {
	ID            int64
	Start         time.Time
	End           time.Time
	DurationSec   float64
	App           string
	FileTab       string
	Description   string
	Project       string
	Tags          []string
	MatterID      string // empty when the session is not billable
	SyncedEntryID string // empty until synced
}

// Billable reports whether the session can be pushed as a time entry.
func (s Session) Billable() bool { return s.MatterID != "" }

// TimeEntry converts the session into the time entry that represents it
// remotely.
func (s Session) TimeEntry() TimeEntry {
	return TimeEntry{
		MatterID:    s.MatterID,
		Start:       s.Start,
		End:         s.End,
		DurationSec: s.DurationSec,
		Description: s.Description,
	}
}
