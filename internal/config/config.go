// Package config loads server settings from the environment with sane
// defaults for local development.
package config

import (
	"log"
	"os"
	"strings"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	JWTSecret      string
	AllowedOrigins []string
}

func defaultConfig() *Config {
	return &Config{
		Port:           ":8080",
		DatabaseDriver: "sqlite3",
		DatabaseURL:    "babble.db",
		JWTSecret:      devSecret,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
func FromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Port = port
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		cfg.DatabaseDriver = driver
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	} else {
		log.Println("JWT_SECRET not set, using insecure development secret")
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
