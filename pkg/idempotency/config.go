package idempotency

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// DefaultExpiry is applied to stored results without an explicit
	// expiry. Zero keeps results forever.
	DefaultExpiry time.Duration `mapstructure:"default-expiry"`
	// LockTimeout bounds waiting for the per-key lock.
	LockTimeout time.Duration `mapstructure:"lock-timeout"`
	// LockRetryInterval is the delay between lock acquisition attempts.
	LockRetryInterval time.Duration `mapstructure:"lock-retry-interval"`
	// CleanupEnabled turns on the background sweep of expired records.
	CleanupEnabled bool `mapstructure:"cleanup-enabled"`
	// CleanupInterval is the delay between cleanup sweeps.
	CleanupInterval time.Duration `mapstructure:"cleanup-interval"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if sub := v.Sub("idempotency"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load idempotency config: %w", err)
		}
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.LockRetryInterval <= 0 {
		cfg.LockRetryInterval = 50 * time.Millisecond
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
}
