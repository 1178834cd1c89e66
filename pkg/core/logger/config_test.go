package logger

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults when section is missing", func(t *testing.T) {
		cfg, err := newConfig(viper.New())

		require.NoError(t, err)
		assert.Equal(t, zapcore.InfoLevel, cfg.Level)
		assert.Equal(t, zapcore.ErrorLevel, cfg.StacktraceLevel)
		assert.False(t, cfg.Development)
	})

	t.Run("parses levels from strings", func(t *testing.T) {
		v := viper.New()
		v.Set("logger.level", "debug")
		v.Set("logger.stacktrace-level", "warn")
		v.Set("logger.development", true)

		cfg, err := newConfig(v)

		require.NoError(t, err)
		assert.Equal(t, zapcore.DebugLevel, cfg.Level)
		assert.Equal(t, zapcore.WarnLevel, cfg.StacktraceLevel)
		assert.True(t, cfg.Development)
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		v := viper.New()
		v.Set("logger.level", "loud")

		_, err := newConfig(v)

		assert.Error(t, err)
	})
}
