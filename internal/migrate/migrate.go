package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Apply runs pending migrations found under internal/migrate/sql.
// Migrations are named like 0001_description.sql and run in lexicographic
// order. Each file executes as one statement batch, so the MySQL DSN must
// include multiStatements=true.
func Apply(ctx context.Context, dsn string, log *slog.Logger) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version BIGINT PRIMARY KEY,
        applied_at DATETIME(6) NOT NULL
    ) ENGINE=InnoDB;`); err != nil {
		return err
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	files, err := fs.Glob(migrationsFS, "sql/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		base := filepath.Base(f)
		ver, err := versionOf(base)
		if err != nil {
			return fmt.Errorf("invalid migration filename %q: %w", base, err)
		}
		if applied[ver] {
			log.Debug("migration already applied", slog.Int("version", ver), slog.String("file", base))
			continue
		}
		b, err := fs.ReadFile(migrationsFS, f)
		if err != nil {
			return err
		}
		log.Info("applying migration", slog.Int("version", ver), slog.String("file", base))
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("applying %s: %w", base, err)
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)",
			ver, time.Now().UTC(),
		); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		m[v] = true
	}
	return m, rows.Err()
}

// versionOf extracts the numeric prefix from names like 0001_sessions.sql.
func versionOf(name string) (int, error) {
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return 0, fmt.Errorf("missing prefix number")
	}
	return strconv.Atoi(name[:i])
}
