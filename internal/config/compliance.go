package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RetentionEntry maps a personal-data category to its retention rule.
// LegalHold marks categories that must never be purged automatically
// (financial records fall under the 7-year IRAS requirement).
type RetentionEntry struct {
	Category         string `mapstructure:"category"`
	MaxRetentionDays int    `mapstructure:"maxRetentionDays"`
	LegalHold        bool   `mapstructure:"legalHold"`
}

// MaxRetention returns the entry's retention period as a duration.
func (e RetentionEntry) MaxRetention() time.Duration {
	return time.Duration(e.MaxRetentionDays) * 24 * time.Hour
}

// ComplianceConfig holds the PDPA retention rules.
type ComplianceConfig struct {
	RetentionPolicies []RetentionEntry `mapstructure:"retentionPolicies"`
	DSARExportTTLDays int              `mapstructure:"dsarExportTtlDays"`
}

// DefaultComplianceConfig mirrors the retention periods NexusCore ships with:
// marketing data two years, account data two years, financial data seven
// years under legal hold, support tickets one year.
func DefaultComplianceConfig() ComplianceConfig {
	return ComplianceConfig{
		RetentionPolicies: []RetentionEntry{
			{Category: "marketing", MaxRetentionDays: 730},
			{Category: "account", MaxRetentionDays: 730},
			{Category: "financial", MaxRetentionDays: 2555, LegalHold: true},
			{Category: "support", MaxRetentionDays: 365},
		},
		DSARExportTTLDays: 30,
	}
}

// ComplianceConfigHolder exposes the current compliance config and hot
// reloads it when the backing file changes.
type ComplianceConfigHolder struct {
	current atomic.Value // holds ComplianceConfig
}

func NewComplianceConfigHolder() (*ComplianceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("compliance")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/nexuscore/config") // Volume-mounted config
	v.AddConfigPath("/etc/nexuscore")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("NEXUSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultComplianceConfig()
		v.SetDefault("compliance.retentionPolicies", defaults.RetentionPolicies)
		v.SetDefault("compliance.dsarExportTtlDays", defaults.DSARExportTTLDays)
	}

	var cfg ComplianceConfig
	if err := v.UnmarshalKey("compliance", &cfg); err != nil {
		return nil, err
	}
	if err := validateComplianceConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ComplianceConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ComplianceConfig
		if err := v.UnmarshalKey("compliance", &updated); err != nil {
			log.Printf("[compliance-config] reload failed: %v", err)
			return
		}
		if err := validateComplianceConfig(updated); err != nil {
			log.Printf("[compliance-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[compliance-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ComplianceConfigHolder) Get() ComplianceConfig {
	return h.current.Load().(ComplianceConfig)
}

// NewComplianceConfigHolderFromConfig builds a holder around a fixed config.
// Tests use it to avoid touching the filesystem.
func NewComplianceConfigHolderFromConfig(cfg ComplianceConfig) *ComplianceConfigHolder {
	holder := &ComplianceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateComplianceConfig(cfg ComplianceConfig) error {
	if len(cfg.RetentionPolicies) == 0 {
		return errors.New("compliance.retentionPolicies cannot be empty")
	}
	seen := make(map[string]bool, len(cfg.RetentionPolicies))
	for _, entry := range cfg.RetentionPolicies {
		category := strings.TrimSpace(entry.Category)
		if category == "" {
			return errors.New("compliance.retentionPolicies entries require a category")
		}
		if entry.MaxRetentionDays <= 0 {
			return errors.New("compliance.retentionPolicies entries require a positive maxRetentionDays")
		}
		if seen[category] {
			return errors.New("compliance.retentionPolicies contains duplicate category " + category)
		}
		seen[category] = true
	}
	if cfg.DSARExportTTLDays <= 0 {
		return errors.New("compliance.dsarExportTtlDays must be positive")
	}
	return nil
}
