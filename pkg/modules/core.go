package modules

import (
	"github.com/dqube/vibemicro-commons/pkg/core/config"
	"github.com/dqube/vibemicro-commons/pkg/core/health"
	"github.com/dqube/vibemicro-commons/pkg/core/logger"
	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"go.uber.org/fx"
)

// NewCoreModule provides core functionality: config, logger, readiness
// tracking and worker registration.
func NewCoreModule() fx.Option {
	return fx.Options(
		logger.NewZapLoggingModule(),
		config.NewViperModule(),
		health.NewReadinessModule(),
		worker.NewWorkersModule(),
	)
}
