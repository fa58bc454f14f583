package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Dialogue DialogueConfig
	QA       QAConfig
	Index    IndexConfig
	OpenAI   OpenAIConfig
	Kafka    KafkaConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DialogueConfig tunes the conversation engine.
type DialogueConfig struct {
	SessionTimeoutSeconds     int
	MemoryTurns               int
	IntentConfidenceThreshold float64
	SweepIntervalSeconds      int
}

// QAConfig tunes agreement retrieval.
type QAConfig struct {
	SimilarityThreshold float64
	TopK                int
}

// IndexConfig controls the offline document index build.
type IndexConfig struct {
	DocumentPath string
	ChunkSize    int
	ChunkOverlap int
}

// OpenAIConfig holds model-provider settings.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbedModel     string
	TimeoutSeconds int
}

// KafkaConfig holds submission-sink broker settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tenant-assistant"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Dialogue: DialogueConfig{
			SessionTimeoutSeconds:     getEnvAsInt("SESSION_TIMEOUT_SECONDS", 1800),
			MemoryTurns:               getEnvAsInt("SESSION_MEMORY_TURNS", 10),
			IntentConfidenceThreshold: getEnvAsFloat("INTENT_CONFIDENCE_THRESHOLD", 0.5),
			SweepIntervalSeconds:      getEnvAsInt("SESSION_SWEEP_INTERVAL_SECONDS", 300),
		},
		QA: QAConfig{
			SimilarityThreshold: getEnvAsFloat("QA_SIMILARITY_THRESHOLD", 0.3),
			TopK:                getEnvAsInt("QA_TOP_K", 4),
		},
		Index: IndexConfig{
			DocumentPath: getEnv("AGREEMENT_DOCUMENT_PATH", "agreement.txt"),
			ChunkSize:    getEnvAsInt("INDEX_CHUNK_SIZE", 500),
			ChunkOverlap: getEnvAsInt("INDEX_CHUNK_OVERLAP", 50),
		},
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4-turbo"),
			EmbedModel:     getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
			TimeoutSeconds: getEnvAsInt("OPENAI_TIMEOUT_SECONDS", 20),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "127.0.0.1:9092")),
			Topic:   getEnv("KAFKA_TICKET_TOPIC", "maintenance-tickets"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTimeout returns the inactivity TTL for sessions.
func (d DialogueConfig) SessionTimeout() time.Duration {
	return time.Duration(d.SessionTimeoutSeconds) * time.Second
}

// SweepInterval returns the cadence of the background session sweeper.
func (d DialogueConfig) SweepInterval() time.Duration {
	return time.Duration(d.SweepIntervalSeconds) * time.Second
}

// Timeout returns the model-provider call deadline.
func (o OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
