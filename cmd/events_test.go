package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/brasilintel/internal/model"
)

func TestFormatEventsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	run := int64(7)
	events := []model.APIEvent{
		{
			ID:            "abc12345-6789-0000-0000-000000000000",
			EventType:     model.EventAIMatch,
			APIName:       "ai_matcher",
			Timestamp:     now,
			Success:       true,
			Detail:        `{"matched_ids":[1]}`,
			CorrelationID: &run,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			EventType: model.EventEmbedding,
			APIName:   "embedder",
			Timestamp: now.Add(-time.Minute),
			Detail:    strings.Repeat("x", 80),
		},
	}

	var buf bytes.Buffer
	formatEventsList(&buf, events)

	output := buf.String()
	assert.Contains(t, output, "TYPE")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "ai_match")
	assert.Contains(t, output, "embedder")
	assert.Contains(t, output, "2025-06-15 10:30:00")
	assert.Contains(t, output, "true")
	assert.Contains(t, output, strings.Repeat("x", 57)+"...")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
