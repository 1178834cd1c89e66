package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// Processor relays persisted outbox records to the message bus. It is
// safe to run several processors against the same collection; the claim
// lease keeps them from delivering the same record concurrently.
type Processor struct {
	store       Store
	bus         messaging.Bus
	conf        Config
	log         *zap.Logger
	limiter     *rate.Limiter
	lastCleanup time.Time
}

func NewProcessor(store Store, bus messaging.Bus, conf Config, log *zap.Logger) *Processor {
	p := &Processor{
		store: store,
		bus:   bus,
		conf:  conf,
		log:   log.With(zap.String("component", "outbox-processor")),
	}
	if conf.PublishRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(conf.PublishRate), 1)
	}
	return p
}

// Run polls the store until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("outbox processor started",
		zap.Duration("poll-interval", p.conf.PollInterval),
		zap.Int("batch-size", p.conf.BatchSize))
	return worker.Poll(ctx, p.conf.PollInterval, p.log, p.processCycle)
}

func (p *Processor) processCycle(ctx context.Context) error {
	requeued, abandoned, err := p.store.RetryFailed(ctx, p.conf.MaxRetryCount)
	if err != nil {
		return err
	}
	if requeued > 0 || abandoned > 0 {
		p.log.Info("retried failed records",
			zap.Int64("requeued", requeued),
			zap.Int64("abandoned", abandoned))
	}

	records, err := p.store.ClaimPending(ctx, p.conf.BatchSize, p.conf.LockTimeout)
	if err != nil {
		return err
	}

	for _, record := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.deliver(ctx, record)
	}

	p.maybeCleanup(ctx)
	return nil
}

func (p *Processor) deliver(ctx context.Context, record Record) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
	}

	err := p.bus.Publish(ctx, record.MessageType, record.Content, record.Headers, record.Destination)
	if err != nil {
		p.log.Warn("failed to publish outbox record",
			zap.String("id", record.ID),
			zap.String("message-type", record.MessageType),
			zap.Int("retry-count", record.RetryCount),
			zap.Error(err))
		if markErr := p.store.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			p.log.Error("failed to mark outbox record as failed",
				zap.String("id", record.ID),
				zap.Error(markErr))
		}
		return
	}

	if err := p.store.MarkProcessed(ctx, record.ID); err != nil {
		// The message went out but the flip failed; the record will be
		// reclaimed and delivered again, which at-least-once allows.
		p.log.Error("failed to mark outbox record as processed",
			zap.String("id", record.ID),
			zap.Error(err))
		return
	}

	p.log.Debug("outbox record delivered",
		zap.String("id", record.ID),
		zap.String("message-type", record.MessageType))
}

func (p *Processor) maybeCleanup(ctx context.Context) {
	if !p.conf.CleanupEnabled {
		return
	}
	if time.Since(p.lastCleanup) < p.conf.CleanupInterval {
		return
	}
	p.lastCleanup = time.Now()

	deleted, err := p.store.CleanupProcessed(ctx, p.conf.Retention)
	if err != nil {
		p.log.Warn("failed to cleanup processed outbox records", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.log.Info("cleaned up processed outbox records", zap.Int64("deleted", deleted))
	}
}
