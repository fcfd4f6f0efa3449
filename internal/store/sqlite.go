package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/brasilintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS api_events (
	id             TEXT PRIMARY KEY,
	event_type     TEXT NOT NULL,
	api_name       TEXT NOT NULL,
	timestamp      DATETIME NOT NULL DEFAULT (datetime('now')),
	success        INTEGER NOT NULL,
	detail         TEXT,
	correlation_id INTEGER
);

CREATE INDEX IF NOT EXISTS idx_api_events_api_name ON api_events(api_name);
CREATE INDEX IF NOT EXISTS idx_api_events_timestamp ON api_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_api_events_correlation_id ON api_events(correlation_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, ev model.APIEvent) error {
	ev = prepareEvent(ev)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_events (id, event_type, api_name, timestamp, success, detail, correlation_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.EventType), ev.APIName, ev.Timestamp, ev.Success, ev.Detail, ev.CorrelationID,
	)
	return eris.Wrap(err, "sqlite: insert event")
}

func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]model.APIEvent, error) {
	query := `SELECT id, event_type, api_name, timestamp, success, detail, correlation_id FROM api_events WHERE 1=1`
	args := []any{}

	if filter.APIName != "" {
		query += ` AND api_name = ?`
		args = append(args, filter.APIName)
	}
	if filter.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.EventType))
	}
	if filter.CorrelationID != nil {
		query += ` AND correlation_id = ?`
		args = append(args, *filter.CorrelationID)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close() //nolint:errcheck

	var events []model.APIEvent
	for rows.Next() {
		var ev model.APIEvent
		var eventType string
		var ts time.Time
		var detail sql.NullString
		var corr sql.NullInt64
		if err := rows.Scan(&ev.ID, &eventType, &ev.APIName, &ts, &ev.Success, &detail, &corr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		ev.EventType = model.EventType(eventType)
		ev.Timestamp = ts.UTC()
		ev.Detail = detail.String
		if corr.Valid {
			id := corr.Int64
			ev.CorrelationID = &id
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}
