package usecase

import (
	"context"
	"errors"
	"log/slog"

	"clio-sync/internal/ports"
)

// MattersUseCase keeps the local matter cache in step with the remote system
// so the tracker UI can offer matters for assignment while offline.
type MattersUseCase struct {
	Log    *slog.Logger
	Client ports.PracticeClient
	Store  ports.SessionStore
}

// Refresh fetches all matters and upserts them into the local cache.
func (uc *MattersUseCase) Refresh(ctx context.Context) error {
	if uc.Client == nil || uc.Store == nil {
		return errors.New("usecase not initialized: missing dependencies")
	}
	matters, err := uc.Client.ListMatters(ctx)
	if err != nil {
		return err
	}
	uc.Log.Info("fetched matters", slog.Int("count", len(matters)))
	if len(matters) == 0 {
		return nil
	}
	return uc.Store.UpsertMatters(ctx, matters)
}
