package kafka

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Brokers is the bootstrap servers list, comma separated.
	Brokers string `mapstructure:"brokers"`
	// ClientID identifies this producer to the brokers.
	ClientID string `mapstructure:"client-id"`
	// DeliveryTimeout bounds waiting for a broker acknowledgement.
	DeliveryTimeout time.Duration `mapstructure:"delivery-timeout"`
	// ReadinessTimeout bounds waiting for broker metadata on startup.
	ReadinessTimeout time.Duration `mapstructure:"readiness-timeout"`
	// FailOnBrokerError makes startup fail when brokers are unreachable.
	FailOnBrokerError bool `mapstructure:"fail-on-broker-error"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if sub := v.Sub("kafka"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load kafka config: %w", err)
		}
	}

	applyDefaults(&cfg)

	if cfg.Brokers == "" {
		return cfg, fmt.Errorf("kafka brokers are required")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 30 * time.Second
	}
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = 60 * time.Second
	}
}
