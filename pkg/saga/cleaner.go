package saga

import (
	"context"

	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
)

// Cleaner periodically removes terminal saga instances past retention.
type Cleaner struct {
	manager Manager
	conf    Config
	log     *zap.Logger
}

func NewCleaner(manager Manager, conf Config, log *zap.Logger) *Cleaner {
	return &Cleaner{
		manager: manager,
		conf:    conf,
		log:     log.With(zap.String("component", "saga-cleaner")),
	}
}

func (c *Cleaner) Run(ctx context.Context) error {
	if !c.conf.CleanupEnabled {
		c.log.Debug("saga cleanup disabled")
		<-ctx.Done()
		return nil
	}

	return worker.Poll(ctx, c.conf.CleanupInterval, c.log, func(ctx context.Context) error {
		deleted, err := c.manager.CleanupCompleted(ctx, c.conf.Retention)
		if err != nil {
			return err
		}
		if deleted > 0 {
			c.log.Info("cleaned up terminal sagas", zap.Int64("deleted", deleted))
		}
		return nil
	})
}
