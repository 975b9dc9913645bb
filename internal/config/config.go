package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/traaaction/backend/internal/fees"
)

// ErrMissingWebhookSecret is returned outside development, where unsigned
// webhooks would let anyone mint commissions.
var ErrMissingWebhookSecret = errors.New("WEBHOOK_SECRET is required when ENVIRONMENT is not development")

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	SMTP       SMTPConfig
	Auth       AuthConfig
	Commission CommissionConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         string `env:"SERVER_PORT" envDefault:"8080"`
	Environment  string `env:"ENVIRONMENT" envDefault:"development"`
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"*"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"traaaction"`
	Password string `env:"DB_PASSWORD" envDefault:"traaaction"`
	Name     string `env:"DB_NAME" envDefault:"traaaction"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type KafkaConfig struct {
	Brokers        []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic          string        `env:"KAFKA_TOPIC" envDefault:"traaaction.commissions"`
	PublishTimeout time.Duration `env:"KAFKA_PUBLISH_TIMEOUT" envDefault:"2s"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM"`
}

type AuthConfig struct {
	CronSecret    string `env:"CRON_SECRET"`
	AdminSecret   string `env:"ADMIN_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type CommissionConfig struct {
	DefaultHoldDays     int             `env:"COMMISSION_HOLD_DAYS" envDefault:"30"`
	TaxRate             decimal.Decimal `env:"COMMISSION_TAX_RATE" envDefault:"0.1667"`
	ProcessorFeePercent decimal.Decimal `env:"COMMISSION_PROCESSOR_FEE_PERCENT" envDefault:"0.029"`
	ProcessorFeeFixed   int64           `env:"COMMISSION_PROCESSOR_FEE_FIXED" envDefault:"30"`
	PlatformFeePercent  decimal.Decimal `env:"COMMISSION_PLATFORM_FEE_PERCENT" envDefault:"0.15"`
	MaturationInterval  time.Duration   `env:"COMMISSION_MATURATION_INTERVAL" envDefault:"1h"`
	SweepBatchSize      int             `env:"COMMISSION_SWEEP_BATCH_SIZE" envDefault:"500"`
	ClickTTL            time.Duration   `env:"CLICK_TTL" envDefault:"2160h"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

func (c CommissionConfig) FeeSchedule() fees.Schedule {
	return fees.Schedule{
		TaxRate:             c.TaxRate,
		ProcessorFeePercent: c.ProcessorFeePercent,
		ProcessorFeeFixed:   c.ProcessorFeeFixed,
		PlatformFeePercent:  c.PlatformFeePercent,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, fmt.Errorf("invalid commission config: %w", err)
	}
	if cfg.Auth.WebhookSecret == "" && !cfg.Server.IsDevelopment() {
		return nil, ErrMissingWebhookSecret
	}
	return cfg, nil
}

func (c CommissionConfig) validate() error {
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]decimal.Decimal{
		"COMMISSION_TAX_RATE":              c.TaxRate,
		"COMMISSION_PROCESSOR_FEE_PERCENT": c.ProcessorFeePercent,
		"COMMISSION_PLATFORM_FEE_PERCENT":  c.PlatformFeePercent,
	} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(one) {
			return fmt.Errorf("%s must be in [0, 1), got %s", name, rate)
		}
	}
	if c.ProcessorFeeFixed < 0 {
		return errors.New("COMMISSION_PROCESSOR_FEE_FIXED must not be negative")
	}
	if c.DefaultHoldDays < 0 {
		return errors.New("COMMISSION_HOLD_DAYS must not be negative")
	}
	if c.SweepBatchSize <= 0 {
		return errors.New("COMMISSION_SWEEP_BATCH_SIZE must be positive")
	}
	return nil
}

// Click attribution window for cached click ids.
const DefaultClickTTL = 90 * 24 * time.Hour
