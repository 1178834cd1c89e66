package inbox

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// PollInterval is the delay between polling cycles.
	PollInterval time.Duration `mapstructure:"poll-interval"`
	// BatchSize limits how many records one cycle claims.
	BatchSize int `mapstructure:"batch-size"`
	// MaxRetryCount is the retry budget before a record is abandoned.
	MaxRetryCount int `mapstructure:"max-retry-count"`
	// LockTimeout is the claim lease duration.
	LockTimeout time.Duration `mapstructure:"lock-timeout"`
	// CleanupEnabled turns on deletion of old processed records. Records
	// removed by cleanup no longer deduplicate redeliveries, so the
	// retention window must exceed the broker's redelivery horizon.
	CleanupEnabled bool `mapstructure:"cleanup-enabled"`
	// CleanupInterval is the delay between cleanup sweeps.
	CleanupInterval time.Duration `mapstructure:"cleanup-interval"`
	// Retention is how long processed records are kept.
	Retention time.Duration `mapstructure:"retention"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if sub := v.Sub("inbox"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load inbox config: %w", err)
		}
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxRetryCount <= 0 {
		cfg.MaxRetryCount = 3
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 30 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
}
