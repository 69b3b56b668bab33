// Package config loads process configuration from the environment,
// following the teacher's convention of direct os.Getenv reads plus an
// optional .env overlay rather than a required config file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TierQuotas maps a tier name to its daily request quota.
type TierQuotas struct {
	Free    int
	Premium int
	Admin   int
}

// Quota returns the daily quota for a tier name, defaulting to Free for an
// unrecognised or empty tier.
func (q TierQuotas) Quota(tier string) int {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "premium":
		return q.Premium
	case "admin":
		return q.Admin
	default:
		return q.Free
	}
}

// RateLimitConfig controls the sliding-window rate limiter (C3).
type RateLimitConfig struct {
	Tiers          TierQuotas
	WindowDuration time.Duration // total sliding window span, e.g. 24h
	SubWindow      time.Duration // sub-window bucket size, e.g. 1h
	ExpireBuffer   time.Duration // extra TTL applied to rl:{identity} keys
	DefaultTier    string
}

// CacheTTLConfig controls response-cache retention by category (C4).
type CacheTTLConfig struct {
	Factual time.Duration
	News    time.Duration
	Opinion time.Duration
}

// RankerWeights holds the hybrid strategy's signal weights and the decay
// lambdas of the temporal and hybrid strategies (C8). The signal weights of
// the temporal and engagement strategies are not configurable here; they
// are fixed in internal/ranker.
type RankerWeights struct {
	Semantic   float64
	Temporal   float64
	Source     float64
	Text       float64
	Quality    float64
	Sentiment  float64
	LambdaTemp float64 // lambda for the "temporal" strategy
	LambdaHyb  float64 // lambda for the "hybrid" strategy
}

// AnthropicConfig configures the Anthropic chat provider.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIConfig configures the OpenAI fallback chat/embeddings provider.
type OpenAIConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	BaseURL        string
}

// QdrantConfig configures the external vector index client (C9).
type QdrantConfig struct {
	DSN        string
	Collection string
	Dimensions int
	Metric     string
}

// IngestionConfig controls the vector-ingestion worker (C9).
type IngestionConfig struct {
	BatchSize         int
	ProcessingPause    time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaGroupID      string
	SweepInterval     time.Duration
}

// DatabaseConfig configures the relational article/player store.
type DatabaseConfig struct {
	DSN string
}

// RedisConfig configures the shared KV store (C1).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the fully resolved process configuration.
type Config struct {
	Host string
	Port int

	Redis       RedisConfig
	RateLimit   RateLimitConfig
	CacheTTL    CacheTTLConfig
	Ranker      RankerWeights
	Anthropic   AnthropicConfig
	OpenAI      OpenAIConfig
	Qdrant      QdrantConfig
	Ingestion   IngestionConfig
	Database    DatabaseConfig

	MemoryWindow      int           // K recent turns kept in active memory
	ConversationTTL   time.Duration // durable conversation persistence TTL
	AdminToken        string
	FPLAPIBaseURL     string
	LogLevel          string
	LogPath           string
	OTelEnabled       bool // gates optional C3/C4 metric counters
}

// Load reads configuration from the environment. A .env file in the
// working directory, if present, is loaded over the OS environment and
// overrides variables that are already set — matching the teacher's
// godotenv.Overload use in internal/config/loader.go, since local/dev runs
// rely on it to avoid re-exporting secrets in the shell.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Host: firstNonEmpty(os.Getenv("HOST"), "0.0.0.0"),
		Port: envInt("PORT", 8080),

		Redis: RedisConfig{
			Addr:     firstNonEmpty(os.Getenv("REDIS_ADDR"), "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},

		RateLimit: RateLimitConfig{
			Tiers: TierQuotas{
				Free:    envInt("RATE_LIMIT_FREE_QUOTA", 50),
				Premium: envInt("RATE_LIMIT_PREMIUM_QUOTA", 500),
				Admin:   envInt("RATE_LIMIT_ADMIN_QUOTA", 10000),
			},
			WindowDuration: envDuration("RATE_LIMIT_WINDOW", 24*time.Hour),
			SubWindow:      envDuration("RATE_LIMIT_SUBWINDOW", time.Hour),
			ExpireBuffer:   envDuration("RATE_LIMIT_EXPIRE_BUFFER", 5*time.Minute),
			DefaultTier:    firstNonEmpty(os.Getenv("RATE_LIMIT_DEFAULT_TIER"), "free"),
		},

		CacheTTL: CacheTTLConfig{
			Factual: envDuration("CACHE_TTL_FACTUAL", 6*time.Hour),
			News:    envDuration("CACHE_TTL_NEWS", 2*time.Hour),
			Opinion: envDuration("CACHE_TTL_OPINION", 24*time.Hour),
		},

		Ranker: RankerWeights{
			Semantic:   envFloat("RANKER_W_SEMANTIC", 0.4),
			Temporal:   envFloat("RANKER_W_TEMPORAL", 0.25),
			Source:     envFloat("RANKER_W_SOURCE", 0.15),
			Text:       envFloat("RANKER_W_TEXT", 0.1),
			Quality:    envFloat("RANKER_W_QUALITY", 0.07),
			Sentiment:  envFloat("RANKER_W_SENTIMENT", 0.03),
			LambdaTemp: envFloat("RANKER_LAMBDA_TEMPORAL", 0.10),
			LambdaHyb:  envFloat("RANKER_LAMBDA_HYBRID", 0.05),
		},

		Anthropic: AnthropicConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Model:   firstNonEmpty(os.Getenv("ANTHROPIC_CHAT_MODEL"), "claude-sonnet-4-5"),
			BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		},

		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			ChatModel:      firstNonEmpty(os.Getenv("OPENAI_CHAT_MODEL"), "gpt-4o-mini"),
			EmbeddingModel: firstNonEmpty(os.Getenv("OPENAI_EMBEDDING_MODEL"), "text-embedding-3-small"),
			BaseURL:        os.Getenv("OPENAI_BASE_URL"),
		},

		Qdrant: QdrantConfig{
			DSN:        firstNonEmpty(os.Getenv("QDRANT_DSN"), "http://localhost:6334"),
			Collection: firstNonEmpty(os.Getenv("QDRANT_COLLECTION"), "football_articles"),
			Dimensions: envInt("VECTOR_DIMENSIONS", 1536),
			Metric:     firstNonEmpty(os.Getenv("QDRANT_METRIC"), "cosine"),
		},

		Ingestion: IngestionConfig{
			BatchSize:       envInt("INGEST_BATCH_SIZE", 25),
			ProcessingPause: envDuration("INGEST_PAUSE", 200*time.Millisecond),
			MaxRetries:      envInt("INGEST_MAX_RETRIES", 3),
			RetryBackoff:    envDuration("INGEST_RETRY_BACKOFF", 60*time.Second),
			KafkaBrokers:    envStringSlice("KAFKA_BROKERS", nil),
			KafkaTopic:      firstNonEmpty(os.Getenv("INGEST_TOPIC"), "vector.ingest"),
			KafkaGroupID:    firstNonEmpty(os.Getenv("INGEST_GROUP_ID"), "vector-ingestion-worker"),
			SweepInterval:   envDuration("INGEST_SWEEP_INTERVAL", 5*time.Minute),
		},

		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},

		MemoryWindow:    envInt("MEMORY_WINDOW", 10),
		ConversationTTL: envDuration("CONVERSATION_TTL", 7*24*time.Hour),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		FPLAPIBaseURL:   firstNonEmpty(os.Getenv("FPL_API_BASE_URL"), "https://fantasy.premierleague.com/api"),
		LogLevel:        firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPath:         os.Getenv("LOG_PATH"),
		OTelEnabled:     envBool("OTEL_ENABLED", false),
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envStringSlice(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
