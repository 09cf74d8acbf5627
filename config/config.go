/*
Package config loads process configuration from the environment.

SOURCES (later wins):
  1. Defaults below
  2. .env file in the working directory, if present
  3. Process environment

VARIABLES:
  APP_ADDR                      listen address (":8080")
  DB_DRIVER                     sqlite3 | pgx | memory ("sqlite3")
  DATABASE_URL                  SQLite path or PostgreSQL DSN ("leave.db")
  LOG_LEVEL                     zerolog level ("info")
  LOG_PRETTY                    console writer instead of JSON (false)
  JWT_SECRET                    HS256 secret; empty enables header identity
  SEED_FILE                     YAML/JSON seed applied at startup
  EXCLUDE_NON_WORKING_DAYS      skip weekends and holidays in durations (true)
  MIN_REASON_LENGTH             minimum request reason length (10)
  CARRY_FORWARD_CHECK_INTERVAL  year-end scheduler tick ("1h"), 0 disables
  CORS_ORIGINS                  comma-separated allowed origins
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                      string
	DBDriver                  string
	DatabaseURL               string
	LogLevel                  string
	LogPretty                 bool
	JWTSecret                 string
	SeedFile                  string
	ExcludeNonWorkingDays     bool
	MinReasonLength           int
	CarryForwardCheckInterval time.Duration
	CORSOrigins               []string
}

// Load reads .env (when present) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Config{
		Addr:                      getEnv("APP_ADDR", ":8080"),
		DBDriver:                  getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL:               getEnv("DATABASE_URL", "leave.db"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogPretty:                 getEnvBool("LOG_PRETTY", false),
		JWTSecret:                 getEnv("JWT_SECRET", ""),
		SeedFile:                  getEnv("SEED_FILE", ""),
		ExcludeNonWorkingDays:     getEnvBool("EXCLUDE_NON_WORKING_DAYS", true),
		MinReasonLength:           getEnvInt("MIN_REASON_LENGTH", 10),
		CarryForwardCheckInterval: getEnvDuration("CARRY_FORWARD_CHECK_INTERVAL", time.Hour),
		CORSOrigins:               getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "pgx", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3, pgx or memory, got %q", c.DBDriver)
	}
	if c.DBDriver == "pgx" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for pgx")
	}
	if c.MinReasonLength < 1 {
		return fmt.Errorf("MIN_REASON_LENGTH must be at least 1, got %d", c.MinReasonLength)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
