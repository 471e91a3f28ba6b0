package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig is the tenant-wide fee billing policy.
type BillingConfig struct {
	BillNumberPrefix  string        `mapstructure:"billNumberPrefix"`
	ReceiptPrefix     string        `mapstructure:"receiptPrefix"`
	DefaultDueDay     int           `mapstructure:"defaultDueDay"`
	BillOptionalItems bool          `mapstructure:"billOptionalItems"`
	LateFee           LateFeeConfig `mapstructure:"lateFee"`
}

type LateFeeConfig struct {
	Amount    float64 `mapstructure:"amount"`
	GraceDays int     `mapstructure:"graceDays"`
}

func (c LateFeeConfig) FlatAmount() decimal.Decimal {
	return decimal.NewFromFloat(c.Amount).Round(2)
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		BillNumberPrefix:  "BILL",
		ReceiptPrefix:     "RCPT",
		DefaultDueDay:     10,
		BillOptionalItems: false,
		LateFee: LateFeeConfig{
			Amount:    100,
			GraceDays: 0,
		},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder returns a holder that never reloads.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bursary/config")
	v.AddConfigPath("/etc/bursary")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BURSARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.billNumberPrefix", defaults.BillNumberPrefix)
	v.SetDefault("billing.receiptPrefix", defaults.ReceiptPrefix)
	v.SetDefault("billing.defaultDueDay", defaults.DefaultDueDay)
	v.SetDefault("billing.billOptionalItems", defaults.BillOptionalItems)
	v.SetDefault("billing.lateFee.amount", defaults.LateFee.Amount)
	v.SetDefault("billing.lateFee.graceDays", defaults.LateFee.GraceDays)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			zap.L().Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			zap.L().Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.BillNumberPrefix) == "" {
		return errors.New("billing.billNumberPrefix cannot be empty")
	}
	if strings.TrimSpace(cfg.ReceiptPrefix) == "" {
		return errors.New("billing.receiptPrefix cannot be empty")
	}
	if cfg.DefaultDueDay < 1 || cfg.DefaultDueDay > 28 {
		return errors.New("billing.defaultDueDay must be between 1 and 28")
	}
	if cfg.LateFee.Amount < 0 {
		return errors.New("billing.lateFee.amount cannot be negative")
	}
	if cfg.LateFee.GraceDays < 0 {
		return errors.New("billing.lateFee.graceDays cannot be negative")
	}
	return nil
}
