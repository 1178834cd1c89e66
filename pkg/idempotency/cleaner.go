package idempotency

import (
	"context"

	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
)

// Cleaner periodically removes expired records. It backs up the TTL
// index for deployments where TTL monitor deletion lags behind.
type Cleaner struct {
	svc  Service
	conf Config
	log  *zap.Logger
}

func NewCleaner(svc Service, conf Config, log *zap.Logger) *Cleaner {
	return &Cleaner{
		svc:  svc,
		conf: conf,
		log:  log.With(zap.String("component", "idempotency-cleaner")),
	}
}

func (c *Cleaner) Run(ctx context.Context) error {
	if !c.conf.CleanupEnabled {
		c.log.Debug("idempotency cleanup disabled")
		<-ctx.Done()
		return nil
	}

	return worker.Poll(ctx, c.conf.CleanupInterval, c.log, func(ctx context.Context) error {
		deleted, err := c.svc.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if deleted > 0 {
			c.log.Info("cleaned up expired idempotency records", zap.Int64("deleted", deleted))
		}
		return nil
	})
}
