package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string

	GitHubBaseURL    string
	GitHubRawBaseURL string
	GitHubToken      string

	EmbeddingModel string
	ChatModel      string

	ChunkSize     int
	ChunkOverlap  int
	TopKChunks    int
	HistoryWindow int

	FetchTimeout    time.Duration
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Load reads configuration from the environment (and a .env file if present)
// and returns it as an explicit object passed into each component.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:  getEnv("DATABASE_URL", "repochat.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		GitHubBaseURL:    getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubRawBaseURL: getEnv("GITHUB_RAW_URL", "https://raw.githubusercontent.com"),
		GitHubToken:      getEnv("GITHUB_TOKEN", ""),

		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		ChatModel:      getEnv("CHAT_MODEL", "gemini-1.5-flash-latest"),

		ChunkSize:     getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:  getEnvAsInt("CHUNK_OVERLAP", 200),
		TopKChunks:    getEnvAsInt("TOP_K_CHUNKS", 3),
		HistoryWindow: getEnvAsInt("HISTORY_WINDOW", 10),

		FetchTimeout:    getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		EmbedTimeout:    getEnvAsDuration("EMBED_TIMEOUT", 60*time.Second),
		GenerateTimeout: getEnvAsDuration("GENERATE_TIMEOUT", 60*time.Second),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
