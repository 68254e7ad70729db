// Package eventlog provides the append-only SQLite record store and the
// deterministic replay that rebuilds a graph snapshot from it.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/repository"
)

// SQLiteLog is the durable append-only event log. The only writer operation
// is Append; sequence ids are assigned by the database in strictly
// increasing order.
type SQLiteLog struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.EventLog = (*SQLiteLog)(nil)

// Open creates or opens the log database at path, creating parent
// directories and the events table as needed.
func Open(path string) (*SQLiteLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			action TEXT NOT NULL,
			payload TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init event log schema: %w", err)
	}
	return &SQLiteLog{db: db, now: time.Now}, nil
}

// OpenExisting opens the log at path and fails loudly if it does not exist.
// Used by the replay tool, which must never silently start from empty state.
func OpenExisting(path string) (*SQLiteLog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("event log not found at %s: %w", path, err)
	}
	return Open(path)
}

// SetClock overrides the timestamp source for tests.
func (l *SQLiteLog) SetClock(now func() time.Time) {
	l.now = now
}

// Append writes one record. The payload is JSON-serialized; the timestamp is
// ISO-8601 UTC. Errors propagate to the caller, which treats them as fatal
// to the triggering operation.
func (l *SQLiteLog) Append(ctx context.Context, action string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", action, err)
	}
	ts := l.now().UTC().Format(time.RFC3339Nano)
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO events(ts, action, payload) VALUES (?, ?, ?)`,
		ts, action, string(data),
	); err != nil {
		return fmt.Errorf("append %s record: %w", action, err)
	}
	return nil
}

// Scan streams all records in ascending id order.
func (l *SQLiteLog) Scan(ctx context.Context, fn func(rec *model.LogRecord) error) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, ts, action, payload FROM events ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("scan event log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      int64
			ts      string
			action  string
			payload string
		)
		if err := rows.Scan(&id, &ts, &action, &payload); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		rec := &model.LogRecord{
			ID:      id,
			TS:      parseRecordTS(ts),
			Action:  action,
			Payload: []byte(payload),
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close releases the underlying database handle.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// parseRecordTS tolerates both RFC3339 and the legacy space-separated
// format; unparsable timestamps fall back to the zero time.
func parseRecordTS(ts string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
