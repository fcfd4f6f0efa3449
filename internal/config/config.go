package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. BRASILINTEL_LOG_LEVEL.
const EnvPrefix = "BRASILINTEL"

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Matching  MatchingConfig  `yaml:"matching" mapstructure:"matching"`
	Dedup     DedupConfig     `yaml:"dedup" mapstructure:"dedup"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the telemetry event store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds completion service settings. An empty Key disables
// AI disambiguation.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-request timeout.
func (c AnthropicConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Embedding providers.
const (
	ProviderNone   = "none"
	ProviderCohere = "cohere"
	ProviderHTTP   = "http"
)

// EmbeddingConfig selects the sentence-embedding backend used for
// deduplication.
type EmbeddingConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	Endpoint      string `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheURL      string `yaml:"cache_url" mapstructure:"cache_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Timeout returns the per-request timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns how long cached vectors live.
func (c EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// MatchingConfig tunes deterministic matching, arbitration and AI
// disambiguation.
type MatchingConfig struct {
	ShortNameMinLength  int     `yaml:"short_name_min_length" mapstructure:"short_name_min_length"`
	MaxInsurerContext   int     `yaml:"max_insurer_context" mapstructure:"max_insurer_context"`
	AIRetryAttempts     int     `yaml:"ai_retry_attempts" mapstructure:"ai_retry_attempts"`
	AIInitialBackoffMs  int     `yaml:"ai_initial_backoff_ms" mapstructure:"ai_initial_backoff_ms"`
	AIMinBackoffMs      int     `yaml:"ai_min_backoff_ms" mapstructure:"ai_min_backoff_ms"`
	AIMaxBackoffMs      int     `yaml:"ai_max_backoff_ms" mapstructure:"ai_max_backoff_ms"`
	TitleMaxChars       int     `yaml:"title_max_chars" mapstructure:"title_max_chars"`
	DescriptionMaxChars int     `yaml:"description_max_chars" mapstructure:"description_max_chars"`
	SingleConfidence    float64 `yaml:"single_confidence" mapstructure:"single_confidence"`
	MultiConfidence     float64 `yaml:"multi_confidence" mapstructure:"multi_confidence"`
	MultiMaxMatches     int     `yaml:"multi_max_matches" mapstructure:"multi_max_matches"`
	Workers             int     `yaml:"workers" mapstructure:"workers"`
	AIRequestsPerMinute int     `yaml:"ai_requests_per_minute" mapstructure:"ai_requests_per_minute"`
	// AICircuitFailures opens a breaker after this many consecutive outage
	// failures. Zero disables it.
	AICircuitFailures     int `yaml:"ai_circuit_failures" mapstructure:"ai_circuit_failures"`
	AICircuitCooldownSecs int `yaml:"ai_circuit_cooldown_secs" mapstructure:"ai_circuit_cooldown_secs"`
}

// DedupConfig configures article deduplication.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "brasilintel.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)

	// AutomaticEnv only sees keys viper already knows about.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 30)

	v.SetDefault("embedding.provider", ProviderNone)
	v.SetDefault("embedding.key", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.endpoint", "")
	v.SetDefault("embedding.timeout_secs", 45)
	v.SetDefault("embedding.cache_url", "")
	v.SetDefault("embedding.cache_ttl_hours", 168)

	v.SetDefault("matching.short_name_min_length", 4)
	v.SetDefault("matching.max_insurer_context", 200)
	v.SetDefault("matching.ai_retry_attempts", 2)
	v.SetDefault("matching.ai_initial_backoff_ms", 1000)
	v.SetDefault("matching.ai_min_backoff_ms", 2000)
	v.SetDefault("matching.ai_max_backoff_ms", 10000)
	v.SetDefault("matching.title_max_chars", 200)
	v.SetDefault("matching.description_max_chars", 500)
	v.SetDefault("matching.single_confidence", 0.95)
	v.SetDefault("matching.multi_confidence", 0.85)
	v.SetDefault("matching.multi_max_matches", 3)
	v.SetDefault("matching.workers", 8)
	v.SetDefault("matching.ai_requests_per_minute", 60)
	v.SetDefault("matching.ai_circuit_failures", 0)
	v.SetDefault("matching.ai_circuit_cooldown_secs", 60)

	v.SetDefault("dedup.similarity_threshold", 0.85)
}

// Validate checks ranges and cross-field constraints. All problems are
// reported together.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		add("store.database_url is required")
	}
	if c.Store.MinConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
		add("store.min_conns must be between 0 and max_conns")
	}

	if c.Anthropic.MaxTokens <= 0 {
		add("anthropic.max_tokens must be > 0")
	}
	if c.Anthropic.TimeoutSecs <= 0 {
		add("anthropic.timeout_secs must be > 0")
	}

	switch c.Embedding.Provider {
	case ProviderNone, "":
	case ProviderCohere:
		if c.Embedding.Key == "" {
			add("embedding.key is required for provider cohere")
		}
	case ProviderHTTP:
		if c.Embedding.Endpoint == "" {
			add("embedding.endpoint is required for provider http")
		}
	default:
		add("embedding.provider must be none, cohere or http, got %q", c.Embedding.Provider)
	}
	if c.Embedding.TimeoutSecs <= 0 {
		add("embedding.timeout_secs must be > 0")
	}

	m := c.Matching
	if m.ShortNameMinLength <= 0 {
		add("matching.short_name_min_length must be > 0")
	}
	if m.MaxInsurerContext <= 0 {
		add("matching.max_insurer_context must be > 0")
	}
	if m.AIRetryAttempts <= 0 {
		add("matching.ai_retry_attempts must be > 0")
	}
	if m.AIInitialBackoffMs < 0 || m.AIMinBackoffMs < 0 || m.AIMaxBackoffMs < 0 {
		add("matching backoff values must be >= 0")
	}
	if m.AIMaxBackoffMs > 0 && m.AIMinBackoffMs > m.AIMaxBackoffMs {
		add("matching.ai_min_backoff_ms must be <= ai_max_backoff_ms")
	}
	if m.TitleMaxChars <= 0 || m.DescriptionMaxChars <= 0 {
		add("matching title and description limits must be > 0")
	}
	if m.SingleConfidence < 0 || m.SingleConfidence > 1 {
		add("matching.single_confidence must be between 0 and 1")
	}
	if m.MultiConfidence < 0 || m.MultiConfidence > 1 {
		add("matching.multi_confidence must be between 0 and 1")
	}
	if m.MultiMaxMatches < 2 || m.MultiMaxMatches > 3 {
		add("matching.multi_max_matches must be 2 or 3")
	}
	if m.Workers < 1 || m.Workers > 64 {
		add("matching.workers must be between 1 and 64")
	}
	if m.AIRequestsPerMinute < 0 {
		add("matching.ai_requests_per_minute must be >= 0")
	}
	if m.AICircuitFailures < 0 || m.AICircuitCooldownSecs < 0 {
		add("matching circuit breaker values must be >= 0")
	}

	if t := c.Dedup.SimilarityThreshold; !(t > 0 && t <= 1) {
		add("dedup.similarity_threshold must be in (0, 1]")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
