package domain

import "time"

// TimeEntry represents a billable record of work against a matter. ID is
// assigned by the remote API and is empty until the entry has been created.
type TimeEntry struct {
	ID          string
	MatterID    string
	Start       time.Time
	End         time.Time
	DurationSec float64 // Fractional seconds; the tracker records sub-second activity
	Description string
}

// Validate checks the entry before it is sent anywhere.
func (e TimeEntry) Validate() error {
	if e.MatterID == "" {
		return &ValidationError{Field: "matter_id", Reason: "must not be empty"}
	}
	if e.DurationSec < 0 {
		return &ValidationError{Field: "duration_sec", Reason: "must not be negative"}
	}
	if !e.End.IsZero() && !e.Start.IsZero() && e.End.Before(e.Start) {
		return &ValidationError{Field: "end", Reason: "must not precede start"}
	}
	return nil
}
