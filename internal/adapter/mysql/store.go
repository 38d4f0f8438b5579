package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"clio-sync/internal/domain"
)

// Store implements ports.SessionStore on a MySQL database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// NewStore opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewStore(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// Conservative pool defaults; can be adjusted via env later.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

// InsertSession stores a tracked session and returns its ID.
func (s *Store) InsertSession(ctx context.Context, sess domain.Session) (int64, error) {
	tagsJSON, _ := json.Marshal(sess.Tags)
	res, err := s.db.ExecContext(ctx, `
INSERT INTO sessions
  (start_time, end_time, duration_sec, app, filetab, description, project, tags, matter_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		sess.Start.UTC(),
		sess.End.UTC(),
		sess.DurationSec,
		sess.App,
		sess.FileTab,
		sess.Description,
		sess.Project,
		string(tagsJSON),
		sess.MatterID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListUnsynced returns billable sessions in [from, to) that have no remote
// entry yet, ordered by start time.
func (s *Store) ListUnsynced(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, start_time, end_time, duration_sec, app, filetab, description, project, tags, matter_id
FROM sessions
WHERE matter_id <> '' AND synced_entry_id IS NULL
  AND start_time >= ? AND start_time < ?
ORDER BY start_time;`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var (
			sess     domain.Session
			tagsJSON string
		)
		if err := rows.Scan(
			&sess.ID,
			&sess.Start,
			&sess.End,
			&sess.DurationSec,
			&sess.App,
			&sess.FileTab,
			&sess.Description,
			&sess.Project,
			&tagsJSON,
			&sess.MatterID,
		); err != nil {
			return nil, err
		}
		if tagsJSON != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &sess.Tags); err != nil {
				return nil, err
			}
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// MarkSynced records the remote time-entry ID for a session.
func (s *Store) MarkSynced(ctx context.Context, sessionID int64, entryID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET synced_entry_id = ? WHERE id = ?;", entryID, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("mysql: session not found")
	}
	return nil
}

// UpsertMatters refreshes the local matter cache.
func (s *Store) UpsertMatters(ctx context.Context, matters []domain.Matter) error {
	if len(matters) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	const q = `
INSERT INTO matters
  (id, display_number, description, status)
VALUES
  (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  display_number=VALUES(display_number),
  description=VALUES(description),
  status=VALUES(status);
`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range matters {
		if _, err := stmt.ExecContext(ctx, m.ID, m.DisplayNumber, m.Description, m.Status); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("matter cache refreshed", slog.Int("count", len(matters)))
	return nil
}

// ListMatters returns the cached matters ordered by display number.
func (s *Store) ListMatters(ctx context.Context) ([]domain.Matter, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, display_number, description, status FROM matters ORDER BY display_number;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Matter
	for rows.Next() {
		var m domain.Matter
		if err := rows.Scan(&m.ID, &m.DisplayNumber, &m.Description, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the underlying DB. Not wired via interface to keep ports minimal.
func (s *Store) Close() error { return s.db.Close() }
