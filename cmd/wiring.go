package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brasilintel/internal/completion"
	"github.com/sells-group/brasilintel/internal/config"
	"github.com/sells-group/brasilintel/internal/dedup"
	"github.com/sells-group/brasilintel/internal/matcher"
	"github.com/sells-group/brasilintel/internal/resilience"
	"github.com/sells-group/brasilintel/internal/store"
	"github.com/sells-group/brasilintel/internal/telemetry"
	"github.com/sells-group/brasilintel/pkg/anthropic"
	"github.com/sells-group/brasilintel/pkg/embed"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: c.Store.MaxConns,
		MinConns: c.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// initRecorder opens the event store. When it cannot be opened, telemetry is
// dropped and the returned close func is a no-op.
func initRecorder(ctx context.Context, c *config.Config) (telemetry.Recorder, func()) {
	st, err := initStore(ctx, c)
	if err != nil {
		zap.L().Warn("telemetry disabled: event store unavailable", zap.Error(err))
		return telemetry.Nop{}, func() {}
	}
	return telemetry.NewStoreRecorder(st, 0), func() { _ = st.Close() }
}

// initCompletion returns nil when no Anthropic key is configured.
func initCompletion(c *config.Config) completion.Service {
	if c.Anthropic.Key == "" {
		return nil
	}
	opts := []anthropic.ClientOption{anthropic.WithTimeout(c.Anthropic.Timeout())}
	if c.Anthropic.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(c.Anthropic.BaseURL))
	}
	client := anthropic.NewClient(c.Anthropic.Key, opts...)
	return completion.NewAnthropicService(client, completion.AnthropicConfig{
		Model:     c.Anthropic.Model,
		MaxTokens: c.Anthropic.MaxTokens,
	})
}

func retryConfig(m config.MatchingConfig) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.MaxAttempts = m.AIRetryAttempts
	rc.InitialBackoff = time.Duration(m.AIInitialBackoffMs) * time.Millisecond
	rc.MinBackoff = time.Duration(m.AIMinBackoffMs) * time.Millisecond
	rc.MaxBackoff = time.Duration(m.AIMaxBackoffMs) * time.Millisecond
	return rc
}

func initPipeline(c *config.Config, svc completion.Service, rec telemetry.Recorder) (*matcher.Pipeline, error) {
	m := c.Matching
	dcfg := matcher.DisambiguatorConfig{
		MaxInsurerContext:   m.MaxInsurerContext,
		TitleMaxChars:       m.TitleMaxChars,
		DescriptionMaxChars: m.DescriptionMaxChars,
		Retry:               retryConfig(m),
	}
	if m.AICircuitFailures > 0 {
		dcfg.Breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             matcher.APIName,
			FailureThreshold: m.AICircuitFailures,
			Cooldown:         time.Duration(m.AICircuitCooldownSecs) * time.Second,
		})
	}
	d, err := matcher.NewDisambiguator(svc, rec, dcfg)
	if err != nil {
		return nil, err
	}
	arbiter := matcher.NewArbiter(matcher.ArbiterConfig{
		SingleConfidence: m.SingleConfidence,
		MultiConfidence:  m.MultiConfidence,
		MultiMaxMatches:  m.MultiMaxMatches,
	})
	return matcher.NewPipeline(matcher.NewMatcher(m.ShortNameMinLength), arbiter, d, matcher.PipelineConfig{
		Workers:             m.Workers,
		AIRequestsPerMinute: m.AIRequestsPerMinute,
	})
}

// encoderFactory defers building the embedding client until the first
// deduplication that needs it.
func encoderFactory(c config.EmbeddingConfig) dedup.EncoderFactory {
	return func() (embed.Encoder, error) {
		var enc embed.Encoder
		switch c.Provider {
		case config.ProviderCohere:
			enc = embed.NewCohereEncoder(c.Key, c.Model, embed.WithCohereTimeout(c.Timeout()))
		case config.ProviderHTTP:
			enc = embed.NewHTTPEncoder(c.Endpoint, c.Key, c.Model, c.Timeout())
		case config.ProviderNone, "":
			return nil, nil
		default:
			return nil, eris.Errorf("unknown embedding provider %q", c.Provider)
		}

		if c.CacheURL == "" {
			return enc, nil
		}
		cache, err := embed.NewRedisCache(c.CacheURL, "")
		if err != nil {
			return nil, err
		}
		return embed.NewCachedEncoder(enc, cache, c.CacheTTL()), nil
	}
}

func initDeduplicator(c *config.Config, threshold float64, rec telemetry.Recorder) (*dedup.Deduplicator, error) {
	if threshold == 0 {
		threshold = c.Dedup.SimilarityThreshold
	}
	return dedup.New(threshold, encoderFactory(c.Embedding), rec)
}
