package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brasilintel/internal/config"
	"github.com/sells-group/brasilintel/internal/telemetry"
	"github.com/sells-group/brasilintel/pkg/embed"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log:       config.LogConfig{Level: "error", Format: "json"},
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "events.db")},
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 1024, TimeoutSecs: 30},
		Embedding: config.EmbeddingConfig{Provider: config.ProviderNone, TimeoutSecs: 45},
		Matching: config.MatchingConfig{
			ShortNameMinLength:  4,
			MaxInsurerContext:   200,
			AIRetryAttempts:     2,
			AIInitialBackoffMs:  1000,
			AIMinBackoffMs:      2000,
			AIMaxBackoffMs:      10000,
			TitleMaxChars:       200,
			DescriptionMaxChars: 500,
			SingleConfidence:    0.95,
			MultiConfidence:     0.85,
			MultiMaxMatches:     3,
			Workers:             4,
		},
		Dedup: config.DedupConfig{SimilarityThreshold: 0.85},
	}
}

func TestInitCompletion_NoKeyIsNil(t *testing.T) {
	c := testConfig(t)
	assert.Nil(t, initCompletion(c))

	c.Anthropic.Key = "sk-ant-test"
	assert.NotNil(t, initCompletion(c))
}

func TestRetryConfig(t *testing.T) {
	rc := retryConfig(testConfig(t).Matching)
	assert.Equal(t, 2, rc.MaxAttempts)
	assert.Equal(t, time.Second, rc.InitialBackoff)
	assert.Equal(t, 2*time.Second, rc.MinBackoff)
	assert.Equal(t, 10*time.Second, rc.MaxBackoff)
}

func TestInitPipeline(t *testing.T) {
	c := testConfig(t)
	p, err := initPipeline(c, nil, telemetry.Nop{})
	require.NoError(t, err)
	assert.NotNil(t, p)

	c.Matching.AICircuitFailures = 3
	c.Matching.AICircuitCooldownSecs = 10
	p, err = initPipeline(c, nil, telemetry.Nop{})
	require.NoError(t, err)
	assert.NotNil(t, p)

	c.Matching.MaxInsurerContext = 0
	_, err = initPipeline(c, nil, telemetry.Nop{})
	assert.Error(t, err)
}

func TestEncoderFactory(t *testing.T) {
	enc, err := encoderFactory(config.EmbeddingConfig{Provider: config.ProviderNone})()
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = encoderFactory(config.EmbeddingConfig{Provider: config.ProviderCohere, Key: "k", TimeoutSecs: 5})()
	require.NoError(t, err)
	assert.Equal(t, embed.DefaultCohereModel, enc.Model())

	enc, err = encoderFactory(config.EmbeddingConfig{Provider: config.ProviderHTTP, Endpoint: "http://localhost:9", Model: "m", TimeoutSecs: 5})()
	require.NoError(t, err)
	assert.Equal(t, "m", enc.Model())

	enc, err = encoderFactory(config.EmbeddingConfig{
		Provider:      config.ProviderHTTP,
		Endpoint:      "http://localhost:9",
		CacheURL:      "redis://127.0.0.1:1/0",
		CacheTTLHours: 1,
	})()
	require.NoError(t, err)
	assert.IsType(t, &embed.CachedEncoder{}, enc)

	_, err = encoderFactory(config.EmbeddingConfig{Provider: config.ProviderHTTP, CacheURL: "://bad"})()
	assert.Error(t, err)

	_, err = encoderFactory(config.EmbeddingConfig{Provider: "word2vec"})()
	assert.Error(t, err)
}

func TestInitDeduplicator_ThresholdOverride(t *testing.T) {
	c := testConfig(t)
	d, err := initDeduplicator(c, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.85, d.Threshold())

	d, err = initDeduplicator(c, 0.9, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, d.Threshold())

	_, err = initDeduplicator(c, 1.5, nil)
	assert.Error(t, err)
}

func TestInitStore_SQLite(t *testing.T) {
	st, err := initStore(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestInitRecorder_FallsBackToNop(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "oracle"
	rec, closeFn := initRecorder(context.Background(), c)
	defer closeFn()
	assert.IsType(t, telemetry.Nop{}, rec)
}
