package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string
	ServerHost string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Presence backend: "memory" for a single relay process, "redis" when
	// presence must be shared across processes.
	PresenceBackend string
	RedisAddr       string

	// PresenceLeakCompat restores the legacy behavior of leaving presence
	// entries behind on ungraceful disconnect. Off by default: disconnects
	// are cleaned up like explicit leaves.
	PresenceLeakCompat bool

	// Session tuning
	SessionSendBuffer  int
	SessionIdleTimeout time.Duration

	// Observability
	JaegerEndpoint string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "docsync"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		PresenceBackend:    getEnv("PRESENCE_BACKEND", "memory"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		PresenceLeakCompat: getEnvBool("PRESENCE_LEAK_COMPAT", false),

		SessionSendBuffer:  getEnvInt("SESSION_SEND_BUFFER", 256),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PresenceBackend != "memory" && cfg.PresenceBackend != "redis" {
		return nil, fmt.Errorf("PRESENCE_BACKEND must be memory or redis, got %q", cfg.PresenceBackend)
	}

	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
