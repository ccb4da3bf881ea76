package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ScoreTable holds the reputation delta per qualifying event kind. Values are
// injected from the environment so deployments can tune scoring without a
// rebuild.
type ScoreTable struct {
	PostCreated  int
	FirstComment int
	FirstReply   int
	Reaction     int
}

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	OutboxPollInterval time.Duration
	Scores             ScoreTable
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   getEnv("JWT_SECRET", "12345"),

		Scores: ScoreTable{
			PostCreated:  getEnvInt("SCORE_POST_CREATED", 5),
			FirstComment: getEnvInt("SCORE_FIRST_COMMENT", 2),
			FirstReply:   getEnvInt("SCORE_FIRST_REPLY", 1),
			Reaction:     getEnvInt("SCORE_REACTION", 1),
		},
	}

	var err error
	cfg.OutboxPollInterval, err = time.ParseDuration(getEnv("OUTBOX_POLL_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
