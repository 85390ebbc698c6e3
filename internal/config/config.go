package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Provider  ProviderConfig
	Cache     CacheConfig
	Pipeline  PipelineConfig
	Retrieval RetrievalConfig
	Report    ReportConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AIConfig struct {
	LLMProvider         string // "ollama" or "openai"
	LLMModel            string
	OllamaBaseURL       string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	EmbeddingProvider   string // "ollama", "openai" or "hash"
	EmbeddingModel      string
	EmbeddingDimensions int
	LLMTimeout          time.Duration
	EmbeddingTimeout    time.Duration
}

type ProviderConfig struct {
	DartAPIKey   string
	DartBaseURL  string
	MockFallback bool
	Timeout      time.Duration
}

type CacheConfig struct {
	StalenessWindow time.Duration
}

type PipelineConfig struct {
	HighThreshold   float64
	LowThreshold    float64
	MaxRetries      int
	RetryStrategies []string
}

type RetrievalConfig struct {
	ExactWeight    float64
	SemanticWeight float64
}

type ReportConfig struct {
	Storage        string // "local" or "gcs"
	Dir            string
	GCSBucket      string
	StorageTimeout time.Duration
}

type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
	Exporter string // "otlp" or "stdout"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "hash"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
			EmbeddingTimeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		},
		Provider: ProviderConfig{
			DartAPIKey:   getEnv("DART_API_KEY", ""),
			DartBaseURL:  getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
			MockFallback: getEnvAsBool("PROVIDER_MOCK_FALLBACK", true),
			Timeout:      getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			StalenessWindow: getEnvAsDuration("CACHE_STALENESS_WINDOW", 24*time.Hour),
		},
		Pipeline: PipelineConfig{
			HighThreshold:   getEnvAsFloat("PIPELINE_HIGH_THRESHOLD", 0.8),
			LowThreshold:    getEnvAsFloat("PIPELINE_LOW_THRESHOLD", 0.5),
			MaxRetries:      getEnvAsInt("PIPELINE_MAX_RETRIES", 1),
			RetryStrategies: getEnvAsList("RETRY_STRATEGIES", []string{"bypass_cache"}),
		},
		Retrieval: RetrievalConfig{
			ExactWeight:    getEnvAsFloat("RETRIEVAL_EXACT_WEIGHT", 0.5),
			SemanticWeight: getEnvAsFloat("RETRIEVAL_SEMANTIC_WEIGHT", 0.5),
		},
		Report: ReportConfig{
			Storage:        getEnv("REPORT_STORAGE", "local"),
			Dir:            getEnv("REPORT_DIR", "./reports"),
			GCSBucket:      getEnv("REPORT_GCS_BUCKET", ""),
			StorageTimeout: getEnvAsDuration("STORAGE_TIMEOUT", 15*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Exporter: getEnv("OTEL_EXPORTER", "otlp"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "24h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
