package ports

import (
	"context"
	"time"

	"clio-sync/internal/domain"
)

// PracticeClient is the facade over the remote practice-management API.
type PracticeClient interface {
	// Authenticate verifies that the client holds a usable credential and
	// fails otherwise. It never silently succeeds without a valid token.
	Authenticate(ctx context.Context) error
	ListMatters(ctx context.Context) ([]domain.Matter, error)
	CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (domain.TimeEntry, error)
}

// SessionStore persists tracked work sessions and the matter cache locally.
type SessionStore interface {
	InsertSession(ctx context.Context, s domain.Session) (int64, error)
	// ListUnsynced returns billable sessions in [from, to) that have not been
	// pushed to the remote system yet, ordered by start time.
	ListUnsynced(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	MarkSynced(ctx context.Context, sessionID int64, entryID string) error
	UpsertMatters(ctx context.Context, matters []domain.Matter) error
	ListMatters(ctx context.Context) ([]domain.Matter, error)
}
