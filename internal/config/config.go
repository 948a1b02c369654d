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

	// Inference engine
	InferenceURL            string
	InferenceTimeoutSeconds int

	// Evidence pipeline
	EvidenceWorkers int

	// Sweep scheduler
	SweepIntervalSeconds int

	// Storage
	StorageType    string
	StoragePath    string
	StorageBaseURL string
	S3Bucket       string
	S3Region       string
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

		InferenceURL:            getEnvOrDefault("INFERENCE_URL", "http://localhost:8000"),
		InferenceTimeoutSeconds: getEnvAsIntOrDefault("INFERENCE_TIMEOUT_SECONDS", 3),

		EvidenceWorkers:      getEnvAsIntOrDefault("EVIDENCE_WORKERS", 3),
		SweepIntervalSeconds: getEnvAsIntOrDefault("SWEEP_INTERVAL_SECONDS", 60),

		StorageType:    getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath:    getEnvOrDefault("STORAGE_PATH", "./uploads"),
		StorageBaseURL: getEnvOrDefault("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		S3Bucket:       getEnvOrDefault("S3_BUCKET", ""),
		S3Region:       getEnvOrDefault("S3_REGION", "ap-northeast-2"),
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
