package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"clio-sync/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	created   []domain.TimeEntry
	createErr error
	matters   []domain.Matter
	listErr   error
}

func (f *fakeClient) Authenticate(ctx context.Context) error { return nil }

func (f *fakeClient) ListMatters(ctx context.Context) ([]domain.Matter, error) {
	return f.matters, f.listErr
}

func (f *fakeClient) CreateTimeEntry(ctx context.Context, e domain.TimeEntry) (domain.TimeEntry, error) {
	if err := e.Validate(); err != nil {
		return domain.TimeEntry{}, err
	}
	if f.createErr != nil {
		return domain.TimeEntry{}, f.createErr
	}
	e.ID = "remote-1"
	f.created = append(f.created, e)
	return e, nil
}

type fakeStore struct {
	sessions []domain.Session
	synced   map[int64]string
	upserted []domain.Matter
}

func (f *fakeStore) InsertSession(ctx context.Context, s domain.Session) (int64, error) {
	f.sessions = append(f.sessions, s)
	return int64(len(f.sessions)), nil
}

func (f *fakeStore) ListUnsynced(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	return f.sessions, nil
}

func (f *fakeStore) MarkSynced(ctx context.Context, id int64, entryID string) error {
	if f.synced == nil {
		f.synced = make(map[int64]string)
	}
	f.synced[id] = entryID
	return nil
}

func (f *fakeStore) UpsertMatters(ctx context.Context, matters []domain.Matter) error {
	f.upserted = append(f.upserted, matters...)
	return nil
}

func (f *fakeStore) ListMatters(ctx context.Context) ([]domain.Matter, error) {
	return f.upserted, nil
}

func TestSyncRun_PushesAndMarks(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	store := &fakeStore{sessions: []domain.Session{
		{ID: 1, Start: start, End: start.Add(time.Hour), DurationSec: 3600, MatterID: "M-1", Description: "Drafting"},
		{ID: 2, Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour), DurationSec: 3600, MatterID: "M-2"},
	}}
	uc := &SyncUseCase{Log: testLogger(), Client: client, Store: store}

	if err := uc.Run(context.Background(), start, start.Add(24*time.Hour)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.created) != 2 {
		t.Fatalf("expected 2 entries created, got %d", len(client.created))
	}
	if store.synced[1] != "remote-1" || store.synced[2] != "remote-1" {
		t.Errorf("sessions not marked synced: %v", store.synced)
	}
}

func TestSyncRun_SkipsInvalidSession(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	store := &fakeStore{sessions: []domain.Session{
		{ID: 1, Start: start, DurationSec: -10, MatterID: "M-1"}, // invalid
		{ID: 2, Start: start, DurationSec: 60, MatterID: "M-2"},
	}}
	uc := &SyncUseCase{Log: testLogger(), Client: client, Store: store}

	if err := uc.Run(context.Background(), start, start.Add(time.Hour)); err != nil {
		t.Fatalf("one bad session must not fail the run: %v", err)
	}
	if len(client.created) != 1 {
		t.Fatalf("expected 1 entry created, got %d", len(client.created))
	}
	if _, ok := store.synced[1]; ok {
		t.Error("invalid session must not be marked synced")
	}
	if store.synced[2] == "" {
		t.Error("valid session not marked synced")
	}
}

func TestSyncRun_AbortsOnAuthError(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{createErr: &domain.AuthError{Reason: "token expired"}}
	store := &fakeStore{sessions: []domain.Session{
		{ID: 1, Start: start, DurationSec: 60, MatterID: "M-1"},
	}}
	uc := &SyncUseCase{Log: testLogger(), Client: client, Store: store}

	if err := uc.Run(context.Background(), start, start.Add(time.Hour)); err == nil {
		t.Fatal("expected auth error to abort the run")
	}
	if len(store.synced) != 0 {
		t.Errorf("nothing should be marked synced, got %v", store.synced)
	}
}

func TestSyncRun_NothingToDo(t *testing.T) {
	uc := &SyncUseCase{Log: testLogger(), Client: &fakeClient{}, Store: &fakeStore{}}
	if err := uc.Run(context.Background(), time.Now().Add(-time.Hour), time.Now()); err != nil {
		t.Fatalf("empty window must succeed: %v", err)
	}
}

// gatedStore blocks ListUnsynced until released so a second run can be
// triggered while the first one is mid-flight.
type gatedStore struct {
	fakeStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListUnsynced(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeStore.ListUnsynced(ctx, from, to)
}

func TestSyncRun_RejectsOverlappingRuns(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	store := &gatedStore{
		fakeStore: fakeStore{sessions: []domain.Session{
			{ID: 1, Start: start, DurationSec: 60, MatterID: "M-1"},
		}},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	uc := &SyncUseCase{Log: testLogger(), Client: client, Store: store}

	done := make(chan error, 1)
	go func() { done <- uc.Run(context.Background(), start, start.Add(time.Hour)) }()
	<-store.entered

	// The first run holds the guard while reading sessions; a second run
	// must bounce instead of pushing the same sessions again.
	if err := uc.Run(context.Background(), start, start.Add(time.Hour)); !errors.Is(err, ErrSyncRunning) {
		t.Fatalf("expected ErrSyncRunning for overlapping run, got %v", err)
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(client.created) != 1 {
		t.Fatalf("session pushed %d times, want 1", len(client.created))
	}

	// The guard is released once the run finishes.
	if err := uc.Run(context.Background(), start, start.Add(time.Hour)); err != nil {
		t.Fatalf("follow-up run must be allowed: %v", err)
	}
}

func TestSyncRun_MissingDependencies(t *testing.T) {
	uc := &SyncUseCase{Log: testLogger()}
	if err := uc.Run(context.Background(), time.Now(), time.Now()); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
