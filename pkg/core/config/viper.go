package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewViperModule provides AppConfig and a *viper.Viper loaded from the
// config file named by AppConfig. Individual packages read their own
// sub-sections from the viper instance.
//
// Environment variables override file values; keys are mapped by replacing
// "." and "-" with "_" (e.g. outbox.poll-interval -> OUTBOX_POLL_INTERVAL).
func NewViperModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newAppConfig,
			newViper,
		),
		fx.Invoke(func(log *zap.Logger, conf AppConfig) {
			log.Info("configuration loaded",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("config-file", conf.ConfigFile),
			)
		}),
	)
}

// Load reads the application environment and its configuration without
// a DI container, for command line tools.
func Load() (AppConfig, *viper.Viper, error) {
	conf, err := newAppConfig()
	if err != nil {
		return conf, nil, err
	}
	v, err := newViper(conf)
	return conf, v, err
}

func newViper(conf AppConfig) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(conf.ConfigFile)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is tolerated: everything has defaults and
		// can be supplied through environment variables.
		if _, statErr := os.Stat(conf.ConfigFile); statErr == nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", conf.ConfigFile, err)
		}
	}

	return v, nil
}
