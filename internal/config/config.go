package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig groups HTTP server settings.
type AppConfig struct {
	Name            string
	Port            string
	Env             string
	ShutdownTimeout time.Duration
}

// PostgresConfig groups database settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig groups Redis settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig groups logging settings.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig groups token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// SlaConfig groups SLA engine settings.
type SlaConfig struct {
	RiskWindowMinutes int
}

// RiskWindow returns the configured at-risk lead time.
func (c SlaConfig) RiskWindow() time.Duration {
	return time.Duration(c.RiskWindowMinutes) * time.Minute
}

// SchedulerConfig groups the periodic-job settings.
type SchedulerConfig struct {
	ViolationSweepSpec string
	RiskSweepSpec      string
	DailyReportSpec    string
	Timezone           string
	WorkerPoolSize     int
	RiskRenotifyTTL    time.Duration
	JobTimeout         time.Duration
}

// Config is the root configuration.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Sla       SlaConfig
	Scheduler SchedulerConfig
}

// Load reads configuration from the environment, with .env as a
// convenience for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "sla-engine"),
			Port:            getEnv("APP_PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			ShutdownTimeout: getDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "sla_engine"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: int32(getInt("POSTGRES_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getDuration("JWT_TTL", 12*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "sla-engine"),
		},
		Sla: SlaConfig{
			RiskWindowMinutes: getInt("SLA_RISK_WINDOW_MINUTES", 120),
		},
		Scheduler: SchedulerConfig{
			ViolationSweepSpec: getEnv("SCHEDULER_VIOLATION_SPEC", "*/15 * * * *"),
			RiskSweepSpec:      getEnv("SCHEDULER_RISK_SPEC", "0 * * * *"),
			DailyReportSpec:    getEnv("SCHEDULER_REPORT_SPEC", "0 6 * * *"),
			Timezone:           getEnv("SCHEDULER_TIMEZONE", "UTC"),
			WorkerPoolSize:     getInt("SCHEDULER_WORKERS", 4),
			RiskRenotifyTTL:    getDuration("SCHEDULER_RISK_RENOTIFY_TTL", 6*time.Hour),
			JobTimeout:         getDuration("SCHEDULER_JOB_TIMEOUT", 10*time.Minute),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
