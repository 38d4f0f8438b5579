package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"clio-sync/internal/domain"
	"clio-sync/internal/ports"
)

// ErrSyncRunning is returned when a sync is triggered while another one is
// still in flight.
var ErrSyncRunning = errors.New("sync already running")

// SyncUseCase pushes locally tracked sessions to the practice-management
// system as time entries.
type SyncUseCase struct {
	Log    *slog.Logger
	Client ports.PracticeClient
	Store  ports.SessionStore

	running atomic.Bool
}

// Run syncs unsynced billable sessions started in [from, to). A validation
// failure on one session is logged and skipped so a single bad record cannot
// wedge the whole window; auth and remote failures abort the run.
//
// Only one run may be in flight at a time: overlapping runs would read the
// same unsynced sessions and create a remote time entry each, duplicating
// billable work. Concurrent callers get ErrSyncRunning.
func (uc *SyncUseCase) Run(ctx context.Context, from, to time.Time) error {
	if uc.Client == nil || uc.Store == nil {
		return errors.New("usecase not initialized: missing dependencies")
	}
	if !uc.running.CompareAndSwap(false, true) {
		return ErrSyncRunning
	}
	defer uc.running.Store(false)
	uc.Log.Info("loading unsynced sessions", slog.Time("from", from), slog.Time("to", to))

	sessions, err := uc.Store.ListUnsynced(ctx, from, to)
	if err != nil {
		return err
	}
	uc.Log.Info("loaded unsynced sessions", slog.Int("count", len(sessions)))

	if len(sessions) == 0 {
		uc.Log.Info("nothing to sync")
		return nil
	}

	var synced, skipped int
	for _, s := range sessions {
		created, err := uc.Client.CreateTimeEntry(ctx, s.TimeEntry())
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				uc.Log.Warn("skipping invalid session",
					slog.Int64("session_id", s.ID),
					slog.String("error", ve.Error()),
				)
				skipped++
				continue
			}
			return err
		}
		if err := uc.Store.MarkSynced(ctx, s.ID, created.ID); err != nil {
			return err
		}
		synced++
	}
	uc.Log.Info("sync completed", slog.Int("synced", synced), slog.Int("skipped", skipped))
	return nil
}
