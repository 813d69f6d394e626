package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath       string
	ServerPort         int
	AllowedOrigins     []string
	LogLevel           slog.Level
	ClassifiedPerGroup int
}

// Load reads the configuration from the environment, after loading .env when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabasePath:       valueOr(getenv("DATABASE_PATH"), "doubles_cup.db"),
		AllowedOrigins:     splitList(valueOr(getenv("CORS_ALLOWED_ORIGINS"), "*")),
		ClassifiedPerGroup: bracket.ClassifiedPerGroup,
	}

	port, err := strconv.Atoi(valueOr(getenv("SERVER_PORT"), "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if err := cfg.LogLevel.UnmarshalText([]byte(valueOr(getenv("LOG_LEVEL"), "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	if raw := getenv("CLASSIFIED_PER_GROUP"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CLASSIFIED_PER_GROUP environment variable: %w", err)
		}
		if n != bracket.ClassifiedPerGroup {
			return nil, fmt.Errorf("CLASSIFIED_PER_GROUP must be %d, got %d", bracket.ClassifiedPerGroup, n)
		}
		cfg.ClassifiedPerGroup = n
	}

	return cfg, nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
