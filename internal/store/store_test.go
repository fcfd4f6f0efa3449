package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brasilintel/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func int64Ptr(v int64) *int64 { return &v }

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("RecordAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, s.RecordEvent(ctx, model.APIEvent{
			EventType:     model.EventAIMatch,
			APIName:       "ai_matcher",
			Timestamp:     base,
			Success:       true,
			Detail:        `{"matched_ids":[1]}`,
			CorrelationID: int64Ptr(42),
		}))
		require.NoError(t, s.RecordEvent(ctx, model.APIEvent{
			EventType: model.EventAIMatch,
			APIName:   "ai_matcher",
			Timestamp: base.Add(time.Minute),
			Success:   false,
			Detail:    `{"error":"Timeout"}`,
		}))

		events, err := s.ListEvents(ctx, EventFilter{})
		require.NoError(t, err)
		require.Len(t, events, 2)

		// Newest first.
		assert.False(t, events[0].Success)
		assert.Nil(t, events[0].CorrelationID)
		assert.True(t, events[1].Success)
		require.NotNil(t, events[1].CorrelationID)
		assert.Equal(t, int64(42), *events[1].CorrelationID)
		assert.Equal(t, model.EventAIMatch, events[1].EventType)
		assert.NotEmpty(t, events[1].ID)
		assert.True(t, base.Equal(events[1].Timestamp))
	})

	t.Run("FilterByAPIAndCorrelation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.RecordEvent(ctx, model.APIEvent{EventType: model.EventAIMatch, APIName: "ai_matcher", Success: true, CorrelationID: int64Ptr(1)}))
		require.NoError(t, s.RecordEvent(ctx, model.APIEvent{EventType: model.EventAIMatch, APIName: "ai_matcher", Success: true, CorrelationID: int64Ptr(2)}))
		require.NoError(t, s.RecordEvent(ctx, model.APIEvent{EventType: model.EventEmbedding, APIName: "embedder", Success: false}))

		events, err := s.ListEvents(ctx, EventFilter{APIName: "ai_matcher"})
		require.NoError(t, err)
		assert.Len(t, events, 2)

		events, err = s.ListEvents(ctx, EventFilter{CorrelationID: int64Ptr(2)})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(2), *events[0].CorrelationID)

		events, err = s.ListEvents(ctx, EventFilter{EventType: model.EventEmbedding})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "embedder", events[0].APIName)
	})

	t.Run("Limit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.RecordEvent(ctx, model.APIEvent{EventType: model.EventAIMatch, APIName: "ai_matcher", Success: true}))
		}
		events, err := s.ListEvents(ctx, EventFilter{Limit: 3})
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("DetailTruncated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.RecordEvent(ctx, model.APIEvent{
			EventType: model.EventAIMatch,
			APIName:   "ai_matcher",
			Detail:    strings.Repeat("é", 900),
		}))
		events, err := s.ListEvents(ctx, EventFilter{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, model.MaxEventDetail, len([]rune(events[0].Detail)))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}

func TestPrepareEvent(t *testing.T) {
	ev := prepareEvent(model.APIEvent{Detail: "ok"})
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev = prepareEvent(model.APIEvent{ID: "keep", Timestamp: fixed})
	assert.Equal(t, "keep", ev.ID)
	assert.Equal(t, fixed, ev.Timestamp)
}
