package config

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Commission.DefaultHoldDays != 30 {
		t.Errorf("hold days = %d", cfg.Commission.DefaultHoldDays)
	}
	if !cfg.Commission.TaxRate.Equal(decimal.RequireFromString("0.1667")) {
		t.Errorf("tax rate = %s", cfg.Commission.TaxRate)
	}
	if cfg.Commission.ClickTTL != DefaultClickTTL {
		t.Errorf("click ttl = %s", cfg.Commission.ClickTTL)
	}
	if got := cfg.Commission.FeeSchedule().Split(10000).NetOfTax; got != 8333 {
		t.Errorf("default schedule net of tax = %d", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMMISSION_HOLD_DAYS", "14")
	t.Setenv("COMMISSION_TAX_RATE", "0.2")
	t.Setenv("COMMISSION_MATURATION_INTERVAL", "15m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Commission.DefaultHoldDays != 14 {
		t.Errorf("hold days = %d", cfg.Commission.DefaultHoldDays)
	}
	if !cfg.Commission.TaxRate.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("tax rate = %s", cfg.Commission.TaxRate)
	}
	if cfg.Commission.MaturationInterval != 15*time.Minute {
		t.Errorf("interval = %s", cfg.Commission.MaturationInterval)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if want := "postgres://traaaction:traaaction@db:5432/traaaction?sslmode=disable"; cfg.Database.DSN() != want {
		t.Errorf("dsn = %q", cfg.Database.DSN())
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("COMMISSION_HOLD_DAYS", "thirty")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRejectsOutOfRangeRate(t *testing.T) {
	t.Setenv("COMMISSION_PLATFORM_FEE_PERCENT", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRequiresWebhookSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("WEBHOOK_SECRET", "")
	if _, err := Load(); !errors.Is(err, ErrMissingWebhookSecret) {
		t.Fatalf("expected ErrMissingWebhookSecret, got %v", err)
	}

	t.Setenv("WEBHOOK_SECRET", "whsec_live")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with secret: %v", err)
	}

	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("WEBHOOK_SECRET", "")
	if _, err := Load(); err != nil {
		t.Fatalf("development without secret: %v", err)
	}
}
