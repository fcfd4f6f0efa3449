// Package store persists API attempt telemetry.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brasilintel/internal/model"
)

// EventFilter specifies criteria for listing events. Zero fields match all.
type EventFilter struct {
	APIName       string          `json:"api_name,omitempty"`
	EventType     model.EventType `json:"event_type,omitempty"`
	CorrelationID *int64          `json:"correlation_id,omitempty"`
	Limit         int             `json:"limit,omitempty"`
}

const defaultListLimit = 100

func (f EventFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for telemetry events.
type Store interface {
	// RecordEvent inserts ev. An empty ID is replaced with a fresh UUID and a
	// zero Timestamp with the current time.
	RecordEvent(ctx context.Context, ev model.APIEvent) error
	// ListEvents returns matching events, newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]model.APIEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
