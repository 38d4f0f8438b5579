//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"clio-sync/internal/adapter/clio"
	msql "clio-sync/internal/adapter/mysql"
	"clio-sync/internal/domain"
	"clio-sync/internal/migrate"
	"clio-sync/internal/usecase"
)

func startMySQL(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "testdb",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", "test", "pass", host, port.Port(), "testdb")
}

func TestSync_MarksSessionsSynced(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()
	dsn := startMySQL(t, ctx)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := migrate.Apply(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := msql.NewStore(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("mysql store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	billable := domain.Session{
		Start:       start,
		End:         start.Add(90 * time.Minute),
		DurationSec: 5400,
		App:         "Word",
		FileTab:     "Smith Agreement.docx",
		Description: "Drafting agreement",
		Project:     "Smith",
		Tags:        []string{"drafting"},
		MatterID:    "M-1",
	}
	nonBillable := domain.Session{
		Start:       start.Add(2 * time.Hour),
		End:         start.Add(3 * time.Hour),
		DurationSec: 3600,
		App:         "Chrome",
		FileTab:     "news",
	}
	billableID, err := store.InsertSession(ctx, billable)
	if err != nil {
		t.Fatalf("insert billable: %v", err)
	}
	if _, err := store.InsertSession(ctx, nonBillable); err != nil {
		t.Fatalf("insert non-billable: %v", err)
	}

	uc := &usecase.SyncUseCase{
		Log:    logger,
		Client: clio.NewSandbox(nil, logger),
		Store:  store,
	}
	if err := uc.Run(ctx, start.Add(-time.Hour), start.Add(24*time.Hour)); err != nil {
		t.Fatalf("sync: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var entryID sql.NullString
	if err := db.QueryRowContext(ctx,
		"SELECT synced_entry_id FROM sessions WHERE id = ?", billableID,
	).Scan(&entryID); err != nil {
		t.Fatalf("query billable: %v", err)
	}
	if !entryID.Valid || entryID.String != clio.SandboxEntryID {
		t.Errorf("billable session entry id = %+v, want %q", entryID, clio.SandboxEntryID)
	}

	var unsyncedCount int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE synced_entry_id IS NULL",
	).Scan(&unsyncedCount); err != nil {
		t.Fatalf("count unsynced: %v", err)
	}
	if unsyncedCount != 1 {
		t.Errorf("expected only the non-billable session to stay unsynced, got %d", unsyncedCount)
	}

	// A second run must not push the already synced session again.
	unsynced, err := store.ListUnsynced(ctx, start.Add(-time.Hour), start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(unsynced) != 0 {
		t.Errorf("expected no unsynced billable sessions after sync, got %d", len(unsynced))
	}
}

func TestMatterCache_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()
	dsn := startMySQL(t, ctx)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := migrate.Apply(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := msql.NewStore(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("mysql store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	matters := []domain.Matter{
		{ID: "2", DisplayNumber: "00002-Jones", Description: "Contract", Status: "Closed"},
		{ID: "1", DisplayNumber: "00001-Smith", Description: "Divorce", Status: "Open"},
	}
	if err := store.UpsertMatters(ctx, matters); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Upserting again with a changed status must update, not duplicate.
	matters[1].Status = "Closed"
	if err := store.UpsertMatters(ctx, matters); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	cached, err := store.ListMatters(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached matters, got %d", len(cached))
	}
	if cached[0].ID != "1" || cached[0].Status != "Closed" {
		t.Errorf("first cached matter = %+v", cached[0])
	}
}
