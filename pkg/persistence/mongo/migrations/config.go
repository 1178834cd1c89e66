package migrations

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Enabled        bool   `mapstructure:"enabled"`
	AutoMigrate    bool   `mapstructure:"auto-migrate"`
	CollectionName string `mapstructure:"collection-name"`
	LockingTimeout int    `mapstructure:"locking-timeout"`
}

func (c Config) GetLockingTimeoutDuration() time.Duration {
	return time.Duration(c.LockingTimeout) * time.Minute
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := Config{Enabled: true, AutoMigrate: true}

	if v.IsSet("mongo.migrations") {
		if err := v.Sub("mongo.migrations").Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load mongo migrations config: %w", err)
		}
	}

	if cfg.CollectionName == "" {
		cfg.CollectionName = "schema_migrations"
	}
	if cfg.LockingTimeout == 0 {
		cfg.LockingTimeout = 5
	}

	return cfg, nil
}
