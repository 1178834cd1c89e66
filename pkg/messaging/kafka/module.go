package kafka

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/health"
	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// NewKafkaModule provides the kafka-backed messaging.Bus.
func NewKafkaModule() fx.Option {
	return fx.Provide(
		newConfig,
		providePublisher,
	)
}

func providePublisher(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) (messaging.Bus, error) {
	bus, err := NewPublisher(conf, log.With(zap.String("component", "kafka-publisher")))
	if err != nil {
		return nil, err
	}
	p := bus.(*publisher)

	markReady := readiness.AddComponent("kafka-publisher")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.waitForBrokers(ctx); err != nil {
				if conf.FailOnBrokerError {
					return err
				}
				log.Warn("kafka brokers not ready, continuing", zap.Error(err))
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.close()
			return nil
		},
	})

	return bus, nil
}
