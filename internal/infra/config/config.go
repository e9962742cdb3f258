package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

// Embedding providers.
const (
	ProviderOpenAI        = "openai"
	ProviderDeterministic = "deterministic"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendPgvector = "pgvector"
	BackendValkey   = "valkey"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Valkey    ValkeyConfig    `yaml:"valkey"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Responder ResponderConfig `yaml:"responder"`
	Admin     AdminConfig     `yaml:"admin"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains ChatGPT/OpenAI connection settings.
type LLMConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingConfig controls how FAQ text is embedded and cached.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	Dimensions     int           `yaml:"dimensions"`
	BatchSize      int           `yaml:"batchSize"`
	SingleDelay    time.Duration `yaml:"singleDelay"`
	BatchDelay     time.Duration `yaml:"batchDelay"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	Cache          string        `yaml:"cache"`
	CachePath      string        `yaml:"cachePath"`
	CacheTTL       time.Duration `yaml:"cacheTtl"`
	FrontSize      int           `yaml:"frontSize"`
}

// RetrievalConfig tunes similarity search.
type RetrievalConfig struct {
	TopK              int     `yaml:"topK"`
	DistanceThreshold float64 `yaml:"distanceThreshold"`
	Parallelism       int     `yaml:"parallelism"`
	TrendingLimit     int     `yaml:"trendingLimit"`
}

// IndexConfig picks the vector index backend.
type IndexConfig struct {
	Backend string `yaml:"backend"`
}

// CorpusConfig locates the FAQ corpus.
type CorpusConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the shared cache, stats and job queue.
type ValkeyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Prefix   string `yaml:"prefix"`
	QueueKey string `yaml:"queueKey"`
}

// SnapshotConfig mirrors the embedding cache file to S3-compatible storage.
type SnapshotConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"accessKey"`
	SecretKey string        `yaml:"secretKey"`
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	Key       string        `yaml:"key"`
	Interval  time.Duration `yaml:"interval"`
}

// ResponderConfig controls review reply generation.
type ResponderConfig struct {
	Model             string        `yaml:"model"`
	SentimentModel    string        `yaml:"sentimentModel"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	Brand             string        `yaml:"brand"`
	DefaultBrandVoice string        `yaml:"defaultBrandVoice"`
	Pacing            time.Duration `yaml:"pacing"`
	ContextSize       int           `yaml:"contextSize"`
}

// AdminConfig secures index maintenance endpoints.
type AdminConfig struct {
	TokenSecret string        `yaml:"tokenSecret"`
	Issuer      string        `yaml:"issuer"`
	TokenTTL    time.Duration `yaml:"tokenTtl"`
}

// Load reads configuration from a YAML file, an optional .env file and
// environment variables, in that order of precedence from lowest to highest.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "invalid config", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv populates unset variables from a dotenv file. A missing default
// .env is fine; a missing explicit file is not.
func loadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setDuration(&cfg.HTTP.ReadTimeout, "HTTP_READ_TIMEOUT")
	setDuration(&cfg.HTTP.WriteTimeout, "HTTP_WRITE_TIMEOUT")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")

	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimensions, "EMBEDDING_DIMENSIONS")
	setInt(&cfg.Embedding.BatchSize, "EMBEDDING_BATCH_SIZE")
	setDuration(&cfg.Embedding.SingleDelay, "EMBEDDING_SINGLE_DELAY")
	setDuration(&cfg.Embedding.BatchDelay, "EMBEDDING_BATCH_DELAY")
	setDuration(&cfg.Embedding.RequestTimeout, "EMBEDDING_REQUEST_TIMEOUT")
	setString(&cfg.Embedding.Cache, "EMBEDDING_CACHE")
	setString(&cfg.Embedding.CachePath, "EMBEDDING_CACHE_PATH")
	setDuration(&cfg.Embedding.CacheTTL, "EMBEDDING_CACHE_TTL")

	setInt(&cfg.Retrieval.TopK, "RETRIEVAL_TOP_K")
	setFloat(&cfg.Retrieval.DistanceThreshold, "RETRIEVAL_DISTANCE_THRESHOLD")
	setInt(&cfg.Retrieval.Parallelism, "RETRIEVAL_PARALLELISM")
	setInt(&cfg.Retrieval.TrendingLimit, "RETRIEVAL_TRENDING_LIMIT")

	setString(&cfg.Index.Backend, "INDEX_BACKEND")
	setString(&cfg.Corpus.Source, "CORPUS_SOURCE")
	setString(&cfg.Corpus.Path, "CORPUS_PATH")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}

	setBool(&cfg.Valkey.Enabled, "VALKEY_ENABLED")
	setString(&cfg.Valkey.Addr, "VALKEY_ADDR")
	setString(&cfg.Valkey.Prefix, "VALKEY_PREFIX")

	setBool(&cfg.Snapshot.Enabled, "SNAPSHOT_ENABLED")
	setString(&cfg.Snapshot.Endpoint, "SNAPSHOT_ENDPOINT")
	setString(&cfg.Snapshot.AccessKey, "SNAPSHOT_ACCESS_KEY")
	setString(&cfg.Snapshot.SecretKey, "SNAPSHOT_SECRET_KEY")
	setString(&cfg.Snapshot.Bucket, "SNAPSHOT_BUCKET")
	setString(&cfg.Snapshot.Region, "SNAPSHOT_REGION")
	setString(&cfg.Snapshot.Key, "SNAPSHOT_KEY")
	setDuration(&cfg.Snapshot.Interval, "SNAPSHOT_INTERVAL")

	setString(&cfg.Responder.Model, "RESPONDER_MODEL")
	setString(&cfg.Responder.SentimentModel, "RESPONDER_SENTIMENT_MODEL")
	if v := os.Getenv("RESPONDER_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Responder.Temperature = float32(parsed)
		}
	}
	setInt(&cfg.Responder.MaxTokens, "RESPONDER_MAX_TOKENS")
	setString(&cfg.Responder.Brand, "RESPONDER_BRAND")
	setString(&cfg.Responder.DefaultBrandVoice, "RESPONDER_BRAND_VOICE")
	setDuration(&cfg.Responder.Pacing, "RESPONDER_PACING")

	setString(&cfg.Admin.TokenSecret, "ADMIN_TOKEN_SECRET")
	setString(&cfg.Admin.Issuer, "ADMIN_TOKEN_ISSUER")
	setDuration(&cfg.Admin.TokenTTL, "ADMIN_TOKEN_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/reviews/respond",
					"/api/v1/faq/reindex",
				},
			},
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:       ProviderOpenAI,
			Model:          "text-embedding-3-small",
			Dimensions:     64,
			BatchSize:      50,
			SingleDelay:    50 * time.Millisecond,
			BatchDelay:     200 * time.Millisecond,
			RequestTimeout: 10 * time.Second,
			Cache:          BackendFile,
			CachePath:      "data/faq_embeddings_cache.json",
			CacheTTL:       30 * 24 * time.Hour,
			FrontSize:      1024,
		},
		Retrieval: RetrievalConfig{
			TopK:              3,
			DistanceThreshold: 1.8,
			Parallelism:       4,
			TrendingLimit:     5,
		},
		Index: IndexConfig{
			Backend: BackendMemory,
		},
		Corpus: CorpusConfig{
			Source: BackendFile,
			Path:   "data/faq.csv",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Valkey: ValkeyConfig{
			Prefix:   "faq",
			QueueKey: "faq:jobs",
		},
		Snapshot: SnapshotConfig{
			Region:   "auto",
			Key:      "faq/embeddings_cache.json",
			Interval: time.Minute,
		},
		Responder: ResponderConfig{
			Model:             "gpt-4o-mini",
			Temperature:       0.65,
			MaxTokens:         400,
			DefaultBrandVoice: "professional",
			Pacing:            1500 * time.Millisecond,
			ContextSize:       3,
		},
		Admin: AdminConfig{
			Issuer:   "review-responder",
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return errors.New("llm.apiKey is required for the openai embedding provider")
		}
		if strings.TrimSpace(c.Embedding.Model) == "" {
			return errors.New("embedding.model cannot be empty")
		}
	case ProviderDeterministic:
		if c.Embedding.Dimensions <= 0 {
			return errors.New("embedding.dimensions must be positive")
		}
	default:
		return fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		return errors.New("embedding.batchSize must be positive")
	}
	switch c.Embedding.Cache {
	case BackendFile:
		if strings.TrimSpace(c.Embedding.CachePath) == "" {
			return errors.New("embedding.cachePath cannot be empty")
		}
	case BackendValkey:
		if !c.Valkey.Enabled {
			return errors.New("embedding.cache=valkey requires valkey.enabled")
		}
	default:
		return fmt.Errorf("embedding.cache %q is not supported", c.Embedding.Cache)
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.topK must be positive")
	}
	if c.Retrieval.DistanceThreshold <= 0 {
		return errors.New("retrieval.distanceThreshold must be positive")
	}
	switch c.Index.Backend {
	case BackendMemory:
	case BackendPgvector:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("index.backend=pgvector requires postgres.dsn")
		}
	default:
		return fmt.Errorf("index.backend %q is not supported", c.Index.Backend)
	}
	switch c.Corpus.Source {
	case BackendFile:
		if strings.TrimSpace(c.Corpus.Path) == "" {
			return errors.New("corpus.path cannot be empty")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("corpus.source=postgres requires postgres.dsn")
		}
	default:
		return fmt.Errorf("corpus.source %q is not supported", c.Corpus.Source)
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Snapshot.Enabled {
		if c.Embedding.Cache != BackendFile {
			return errors.New("snapshot mirroring requires embedding.cache=file")
		}
		if c.Snapshot.Endpoint == "" || c.Snapshot.Bucket == "" {
			return errors.New("snapshot.endpoint and snapshot.bucket are required when snapshots are enabled")
		}
	}
	if c.Responder.MaxTokens <= 0 {
		return errors.New("responder.maxTokens must be positive")
	}
	if c.Responder.Pacing < 0 {
		return errors.New("responder.pacing cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
