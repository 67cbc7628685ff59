package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI (coach feedback + smart query generation)
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// Qdrant vector index
	QdrantHost     string
	QdrantPort     int
	CollectionName string

	// Ollama embeddings
	OllamaHost     string
	EmbeddingModel string
	EmbeddingDim   int

	// Learner clustering model artifact
	ClusterModelPath string

	// Indexer
	WorkerCount      int
	ChunkMinutes     int
	MinChunkLength   int
	SearchFetchLimit int
	MaxResults       int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		// Optional: the coach degrades to canned feedback without it
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),

		QdrantHost:     getEnvOrDefault("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvAsIntOrDefault("QDRANT_PORT", 6334),
		CollectionName: getEnvOrDefault("QDRANT_COLLECTION", "learning_videos"),

		OllamaHost:     getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "all-minilm"),
		EmbeddingDim:   getEnvAsIntOrDefault("EMBEDDING_DIM", 384),

		ClusterModelPath: getEnvOrDefault("CLUSTER_MODEL_PATH", "./student_clustering_model.json"),

		WorkerCount:      getEnvAsIntOrDefault("INDEXER_WORKERS", 2),
		ChunkMinutes:     getEnvAsIntOrDefault("CHUNK_MINUTES", 5),
		MinChunkLength:   getEnvAsIntOrDefault("MIN_CHUNK_LENGTH", 50),
		SearchFetchLimit: getEnvAsIntOrDefault("SEARCH_FETCH_LIMIT", 50),
		MaxResults:       getEnvAsIntOrDefault("SEARCH_MAX_RESULTS", 9),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
