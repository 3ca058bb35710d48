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

	// Optional. Notifications are only fanned out when set.
	RedisURL string

	// Presence simulation
	PresenceTick       time.Duration
	PresenceStaleAfter time.Duration
	PresenceMaxUsers   int

	// Optimistic mutations
	MutationGrace  time.Duration
	ActionComplete time.Duration

	// Observability
	JaegerEndpoint string
	LogLevel       string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "vantage"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		RedisURL: getEnv("REDIS_URL", ""),

		PresenceTick:       getEnvMillis("PRESENCE_TICK_MS", 3000),
		PresenceStaleAfter: getEnvMillis("PRESENCE_STALE_MS", 30000),
		PresenceMaxUsers:   getEnvInt("PRESENCE_MAX_USERS", 3),

		MutationGrace:  getEnvMillis("MUTATION_GRACE_MS", 1000),
		ActionComplete: getEnvMillis("ACTION_COMPLETE_MS", 2000),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"PRESENCE_TICK_MS", cfg.PresenceTick},
		{"PRESENCE_STALE_MS", cfg.PresenceStaleAfter},
		{"MUTATION_GRACE_MS", cfg.MutationGrace},
		{"ACTION_COMPLETE_MS", cfg.ActionComplete},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return nil, fmt.Errorf("%s must be positive", p.name)
		}
	}
	if cfg.PresenceMaxUsers < 0 {
		return nil, fmt.Errorf("PRESENCE_MAX_USERS must not be negative")
	}

	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
