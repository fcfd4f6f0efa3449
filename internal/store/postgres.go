package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brasilintel/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock's
// PgxPoolIface satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const insertEventStmt = "insert_event"

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	insertEventStmt: insertEventSQL,
}

const insertEventSQL = `INSERT INTO api_events (id, event_type, api_name, timestamp, success, detail, correlation_id) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS api_events (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	event_type     TEXT NOT NULL,
	api_name       TEXT NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL DEFAULT now(),
	success        BOOLEAN NOT NULL,
	detail         TEXT,
	correlation_id BIGINT
);

CREATE INDEX IF NOT EXISTS idx_api_events_api_name ON api_events(api_name);
CREATE INDEX IF NOT EXISTS idx_api_events_timestamp ON api_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_api_events_correlation_id ON api_events(correlation_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordEvent(ctx context.Context, ev model.APIEvent) error {
	ev = prepareEvent(ev)
	_, err := s.pool.Exec(ctx, insertEventStmt,
		ev.ID, string(ev.EventType), ev.APIName, ev.Timestamp, ev.Success, ev.Detail, ev.CorrelationID,
	)
	return eris.Wrap(err, "postgres: insert event")
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]model.APIEvent, error) {
	query := `SELECT id, event_type, api_name, timestamp, success, detail, correlation_id FROM api_events WHERE true`
	args := []any{}
	argIdx := 1

	if filter.APIName != "" {
		query += fmt.Sprintf(` AND api_name = $%d`, argIdx)
		args = append(args, filter.APIName)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(` AND event_type = $%d`, argIdx)
		args = append(args, string(filter.EventType))
		argIdx++
	}
	if filter.CorrelationID != nil {
		query += fmt.Sprintf(` AND correlation_id = $%d`, argIdx)
		args = append(args, *filter.CorrelationID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.APIEvent
	for rows.Next() {
		var ev model.APIEvent
		var eventType string
		var detail *string
		if err := rows.Scan(&ev.ID, &eventType, &ev.APIName, &ev.Timestamp, &ev.Success, &detail, &ev.CorrelationID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		ev.EventType = model.EventType(eventType)
		if detail != nil {
			ev.Detail = *detail
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

// prepareEvent fills defaults and enforces the detail length cap.
func prepareEvent(ev model.APIEvent) model.APIEvent {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Detail = model.TruncateDetail(ev.Detail)
	return ev
}
