package saga

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// CleanupEnabled turns on deletion of old terminal instances.
	CleanupEnabled bool `mapstructure:"cleanup-enabled"`
	// CleanupInterval is the delay between cleanup sweeps.
	CleanupInterval time.Duration `mapstructure:"cleanup-interval"`
	// Retention is how long terminal instances are kept.
	Retention time.Duration `mapstructure:"retention"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if sub := v.Sub("saga"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load saga config: %w", err)
		}
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 6 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
}
