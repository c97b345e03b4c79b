package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mavuno/mavuno-api/internal/pkg/env"
)

const (
	IdempotencyMemory   = "memory"
	IdempotencyRedis    = "redis"
	IdempotencyDatabase = "database"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Host        string `validate:"required"`
	Port        string `validate:"required,numeric"`
	AppEnv      string
	ServiceName string `validate:"required"`

	Wave     WaveConfig
	Twilio   TwilioConfig
	Database DatabaseConfig
	Cache    CacheConfig

	OwnerPhone string

	OrderWebhookSecret    string
	OrderWebhookUserAgent string

	IdempotencyBackend string        `validate:"oneof=memory redis database"`
	IdempotencyTTL     time.Duration `validate:"min=0"`

	LedgerEnabled bool
	RateLimitMax  int `validate:"min=0"`
}

type WaveConfig struct {
	APIKey            string        `validate:"required"`
	WebhookSecret     string        `validate:"required"`
	BaseURL           string        `validate:"required,url"`
	Currency          string        `validate:"required,len=3"`
	SuccessURL        string        `validate:"required,url"`
	ErrorURL          string        `validate:"required,url"`
	SignatureEncoding string        `validate:"oneof=hex base64"`
	WebhookTolerance  time.Duration `validate:"gt=0"`
	HTTPTimeout       time.Duration `validate:"gt=0"`
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Enabled reports whether every credential needed to send SMS is present.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns the go-sql-driver/mysql data source name.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// LoadDatabase reads the DB_* keys. The server and the migrate command both
// build their connection from it.
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
		Port:     env.GetEnv("DB_PORT", "3306"),
		User:     env.GetEnv("DB_USER", ""),
		Password: env.GetEnv("DB_PASSWORD", ""),
		Name:     env.GetEnv("DB_NAME", ""),
	}
}

// Validate reports the keys a connection cannot do without.
func (c DatabaseConfig) Validate() error {
	if c.User == "" || c.Name == "" {
		return fmt.Errorf("invalid configuration: DB_USER and DB_NAME are required")
	}
	return nil
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
}

func (c CacheConfig) Enabled() bool {
	return c.Host != ""
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Load reads the configuration from env and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Host:        env.GetEnv("APP_HOST", "0.0.0.0"),
		Port:        env.GetEnv("PORT", env.GetEnv("APP_PORT", "8080")),
		AppEnv:      env.GetEnv("APP_ENV", "prod"),
		ServiceName: env.GetEnv("SERVICE_NAME", "mavuno-api"),
		Wave: WaveConfig{
			APIKey:            strings.TrimSpace(env.GetEnv("WAVE_API_KEY", "")),
			WebhookSecret:     strings.TrimSpace(env.GetEnv("WAVE_WEBHOOK_SECRET", "")),
			BaseURL:           strings.TrimRight(env.GetEnv("WAVE_API_BASE_URL", "https://api.wave.com"), "/"),
			Currency:          strings.ToUpper(env.GetEnv("WAVE_CURRENCY", "GMD")),
			SuccessURL:        env.GetEnv("WAVE_SUCCESS_URL", "https://example.com/payment-success"),
			ErrorURL:          env.GetEnv("WAVE_ERROR_URL", "https://example.com/payment-failed"),
			SignatureEncoding: strings.ToLower(env.GetEnv("WAVE_SIGNATURE_ENCODING", "hex")),
			WebhookTolerance:  env.GetDuration("WAVE_WEBHOOK_TOLERANCE", 300*time.Second),
			HTTPTimeout:       env.GetDuration("WAVE_HTTP_TIMEOUT", 10*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID: strings.TrimSpace(env.GetEnv("TWILIO_ACCOUNT_SID", "")),
			AuthToken:  strings.TrimSpace(env.GetEnv("TWILIO_AUTH_TOKEN", "")),
			FromNumber: strings.TrimSpace(env.GetEnv("TWILIO_FROM_NUMBER", "")),
		},
		Database: LoadDatabase(),
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", ""),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		OwnerPhone:            strings.TrimSpace(env.GetEnv("OWNER_PHONE", "")),
		OrderWebhookSecret:    strings.TrimSpace(env.GetEnv("ORDER_WEBHOOK_SECRET", "")),
		OrderWebhookUserAgent: strings.TrimSpace(env.GetEnv("ORDER_WEBHOOK_USER_AGENT", "")),
		IdempotencyBackend:    strings.ToLower(env.GetEnv("IDEMPOTENCY_BACKEND", IdempotencyMemory)),
		IdempotencyTTL:        env.GetDuration("IDEMPOTENCY_TTL", 720*time.Hour),
		LedgerEnabled:         env.GetBool("LEDGER_ENABLED", false),
		RateLimitMax:          env.GetInt("RATE_LIMIT_MAX", 120),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags plus the cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.NeedsDatabase() {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("%w when the ledger or database idempotency backend is enabled", err)
		}
	}
	if c.IdempotencyBackend == IdempotencyRedis && !c.Cache.Enabled() {
		return fmt.Errorf("invalid configuration: CACHE_HOST is required for the redis idempotency backend")
	}
	return nil
}

// NeedsDatabase reports whether any component uses the relational store.
func (c *Config) NeedsDatabase() bool {
	return c.LedgerEnabled || c.IdempotencyBackend == IdempotencyDatabase
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
