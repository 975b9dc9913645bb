package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/config"
	"github.com/traaaction/backend/internal/fees"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/repository"
)

// Runtime overrides stored in the settings table.
const (
	SettingTaxRate             = "tax_rate"
	SettingProcessorFeePercent = "processor_fee_percent"
	SettingProcessorFeeFixed   = "processor_fee_fixed"
	SettingPlatformFeePercent  = "platform_fee_percent"
	SettingDefaultHoldDays     = "default_hold_days"
)

type SettingsService struct {
	store    SettingsStore
	audit    AuditStore
	defaults config.CommissionConfig
}

func NewSettingsService(store SettingsStore, audit AuditStore, defaults config.CommissionConfig) *SettingsService {
	return &SettingsService{store: store, audit: audit, defaults: defaults}
}

// FeeSchedule returns the schedule in effect: settings table first, config
// defaults for anything missing or unreadable.
func (s *SettingsService) FeeSchedule(ctx context.Context) (fees.Schedule, error) {
	sched := s.defaults.FeeSchedule()

	var err error
	if sched.TaxRate, err = s.rate(ctx, SettingTaxRate, sched.TaxRate); err != nil {
		return fees.Schedule{}, err
	}
	if sched.ProcessorFeePercent, err = s.rate(ctx, SettingProcessorFeePercent, sched.ProcessorFeePercent); err != nil {
		return fees.Schedule{}, err
	}
	if sched.PlatformFeePercent, err = s.rate(ctx, SettingPlatformFeePercent, sched.PlatformFeePercent); err != nil {
		return fees.Schedule{}, err
	}
	fixed, err := s.integer(ctx, SettingProcessorFeeFixed, sched.ProcessorFeeFixed)
	if err != nil {
		return fees.Schedule{}, err
	}
	sched.ProcessorFeeFixed = fixed
	return sched, nil
}

func (s *SettingsService) DefaultHoldDays(ctx context.Context) (int, error) {
	days, err := s.integer(ctx, SettingDefaultHoldDays, int64(s.defaults.DefaultHoldDays))
	return int(days), err
}

// Effective returns every known setting with the value currently applied.
func (s *SettingsService) Effective(ctx context.Context) (map[string]string, error) {
	sched, err := s.FeeSchedule(ctx)
	if err != nil {
		return nil, err
	}
	hold, err := s.DefaultHoldDays(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		SettingTaxRate:             sched.TaxRate.String(),
		SettingProcessorFeePercent: sched.ProcessorFeePercent.String(),
		SettingProcessorFeeFixed:   strconv.FormatInt(sched.ProcessorFeeFixed, 10),
		SettingPlatformFeePercent:  sched.PlatformFeePercent.String(),
		SettingDefaultHoldDays:     strconv.Itoa(hold),
	}, nil
}

// Set validates and stores an override. Only future commissions see it;
// existing commissions keep the amounts computed at generation time.
func (s *SettingsService) Set(ctx context.Context, actor, key, value string) error {
	if err := validateSetting(key, value); err != nil {
		return err
	}
	if err := s.store.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	if err := s.audit.LogAdminAction(ctx, actor, model.AdminActionSetSetting, &key, map[string]string{"value": value}); err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to write admin log")
	}
	return nil
}

func validateSetting(key, value string) error {
	switch key {
	case SettingTaxRate, SettingProcessorFeePercent, SettingPlatformFeePercent:
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: %s must be a fraction in [0, 1)", ErrInvalidSetting, key)
		}
	case SettingProcessorFeeFixed, SettingDefaultHoldDays:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidSetting, key)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}

func (s *SettingsService) rate(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw, err := s.store.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return fallback, nil
		}
		return decimal.Decimal{}, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if validateSetting(key, raw) != nil {
		log.WithFields(log.Fields{"key": key, "value": raw}).Warn("Ignoring invalid setting")
		return fallback, nil
	}
	return decimal.RequireFromString(raw), nil
}

func (s *SettingsService) integer(ctx context.Context, key string, fallback int64) (int64, error) {
	raw, err := s.store.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return fallback, nil
		}
		return 0, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		log.WithFields(log.Fields{"key": key, "value": raw}).Warn("Ignoring invalid setting")
		return fallback, nil
	}
	return n, nil
}
