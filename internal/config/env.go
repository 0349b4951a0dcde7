package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	SslCertPath  string
	JWTSecret    string
	Port         string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	// Provider selection: "gemini" or "openai" per capability.
	EmbedProvider string
	LLMProvider   string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	EmbedModel    string
	GenModel      string
	EmbedDim      int
	ProviderRPS   float64 // rate limit applied to outbound AI calls

	// Pipeline tuning.
	ChunkSize        int
	ChunkOverlap     int
	MaxContentLength int
	MaxRetries       int
	RetryBaseDelay   time.Duration
	StageTimeout     time.Duration
	Workers          int
	EmbedBatchSize   int

	// Search defaults.
	SimilarityThreshold float64
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8080"),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "memora-docs"),

		EmbedProvider: getEnv("EMBED_PROVIDER", "gemini"),
		LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		EmbedModel:    getEnv("EMBED_MODEL", ""),
		GenModel:      getEnv("GEN_MODEL", ""),
		EmbedDim:      getEnvInt("EMBED_DIM", 1536),
		ProviderRPS:   getEnvFloat("PROVIDER_RPS", 5),

		ChunkSize:        getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		MaxContentLength: getEnvInt("MAX_CONTENT_LENGTH", 1_000_000),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
		StageTimeout:     getEnvDuration("STAGE_TIMEOUT", 5*time.Minute),
		Workers:          getEnvInt("PIPELINE_WORKERS", 4),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 16),

		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.7),
	}

	// Model defaults depend on the chosen provider.
	if cfg.EmbedModel == "" {
		if cfg.EmbedProvider == "openai" {
			cfg.EmbedModel = "text-embedding-3-small"
		} else {
			cfg.EmbedModel = "text-embedding-004"
		}
	}
	if cfg.GenModel == "" {
		if cfg.LLMProvider == "openai" {
			cfg.GenModel = "gpt-4o-mini"
		} else {
			cfg.GenModel = "gemini-1.5-flash"
		}
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
