package mongo

import (
	"context"

	"github.com/dqube/vibemicro-commons/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMongoModule provides the mongo client, configuration and transaction
// manager for dependency injection.
func NewMongoModule() fx.Option {
	return fx.Provide(
		provideMongo,
		newConfig,
		newTxManager,
	)
}

func provideMongo(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) (Mongo, Admin, error) {
	m, err := New(log, conf)
	if err != nil {
		return nil, nil, err
	}

	markReady := readiness.AddComponent("mongo-module")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			defer markReady()
			return m.Connect(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return m.Disconnect(ctx)
		},
	})

	return m, m, nil
}
