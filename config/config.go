package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL     string
	JWTSecret       string
	JWTExpiration   time.Duration
	ServerPort      string
	RetentionDays   int
	DefaultGraceMin int
	DefaultSite     string
	PreferTwoLetter bool
	MaxUploadBytes  int64
}

func Load() *Config {
	return &Config{
		DatabaseURL:     getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/timeclock"),
		JWTSecret:       getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:   24 * time.Hour,
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		RetentionDays:   getEnvInt("RETENTION_DAYS", 90),
		DefaultGraceMin: getEnvInt("GRACE_MINUTES", 10),
		DefaultSite:     getEnv("DEFAULT_SITE", ""),
		PreferTwoLetter: getEnvBool("MATCHER_PREFER_TWO_LETTER", true),
		MaxUploadBytes:  10 << 20, // files are ~10MB at most
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
