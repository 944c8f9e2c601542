package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"3001"`
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionSecret   string `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"168"`

	CodeRateLimitMax           int `env:"CODE_RATE_LIMIT_MAX" envDefault:"3"`
	CodeRateLimitWindowMinutes int `env:"CODE_RATE_LIMIT_WINDOW_MINUTES" envDefault:"15"`

	VerifyAttemptMax           int `env:"VERIFY_ATTEMPT_MAX" envDefault:"5"`
	VerifyAttemptWindowMinutes int `env:"VERIFY_ATTEMPT_WINDOW_MINUTES" envDefault:"15"`

	GeminiConfig

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"DP Auto"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
}

// GeminiConfig agrupa lo que necesita el asistente; cmd/cli_chat solo carga esto.
type GeminiConfig struct {
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash-exp"`
}

var ErrDatabaseURLRequired = errors.New("DATABASE_URL is required for the postgres store backend")

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadGeminiConfig carga solo la configuración del asistente.
func LoadGeminiConfig() (*GeminiConfig, error) {
	var cfg GeminiConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	case StoreBackendRedis, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) CodeRateLimitWindow() time.Duration {
	return time.Duration(c.CodeRateLimitWindowMinutes) * time.Minute
}

func (c *Config) VerifyAttemptWindow() time.Duration {
	return time.Duration(c.VerifyAttemptWindowMinutes) * time.Minute
}
