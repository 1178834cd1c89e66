package inbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// Processor dispatches persisted inbox records to registered handlers.
// Records of the same message group are handled in sequence order; when
// one fails, the rest of its group is released back to pending so a later
// cycle retries them in order.
type Processor struct {
	store       Store
	registry    messaging.HandlerRegistry
	conf        Config
	log         *zap.Logger
	lastCleanup time.Time
}

func NewProcessor(store Store, registry messaging.HandlerRegistry, conf Config, log *zap.Logger) *Processor {
	return &Processor{
		store:    store,
		registry: registry,
		conf:     conf,
		log:      log.With(zap.String("component", "inbox-processor")),
	}
}

// Run polls the store until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("inbox processor started",
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

	// groups that already saw a failure this cycle; later members must
	// wait so their order is preserved
	failedGroups := map[string]bool{}

	for _, record := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if record.MessageGroup != "" && failedGroups[record.MessageGroup] {
			if err := p.store.Release(ctx, record.ID); err != nil {
				p.log.Error("failed to release inbox record",
					zap.String("id", record.ID),
					zap.Error(err))
			}
			continue
		}

		if !p.handle(ctx, record) && record.MessageGroup != "" {
			failedGroups[record.MessageGroup] = true
		}
	}

	p.maybeCleanup(ctx)
	return nil
}

// handle dispatches one record and reports whether it succeeded.
func (p *Processor) handle(ctx context.Context, record Record) bool {
	handler, ok := p.registry.Resolve(record.MessageType)
	if !ok {
		p.markFailed(ctx, record, fmt.Sprintf("no handler registered for message type %q", record.MessageType))
		return false
	}

	msg := messaging.Message{
		ID:            record.ID,
		Type:          record.MessageType,
		Content:       record.Content,
		Headers:       record.Headers,
		Source:        record.Source,
		CorrelationID: record.CorrelationID,
	}

	if err := handler(ctx, msg); err != nil {
		p.log.Warn("inbox handler failed",
			zap.String("id", record.ID),
			zap.String("message-type", record.MessageType),
			zap.String("message-group", record.MessageGroup),
			zap.Int("retry-count", record.RetryCount),
			zap.Error(err))
		p.markFailed(ctx, record, err.Error())
		return false
	}

	if err := p.store.MarkProcessed(ctx, record.ID); err != nil {
		p.log.Error("failed to mark inbox record as processed",
			zap.String("id", record.ID),
			zap.Error(err))
		return false
	}

	p.log.Debug("inbox record handled",
		zap.String("id", record.ID),
		zap.String("message-type", record.MessageType))
	return true
}

func (p *Processor) markFailed(ctx context.Context, record Record, reason string) {
	if err := p.store.MarkFailed(ctx, record.ID, reason); err != nil {
		p.log.Error("failed to mark inbox record as failed",
			zap.String("id", record.ID),
			zap.Error(err))
	}
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
		p.log.Warn("failed to cleanup processed inbox records", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.log.Info("cleaned up processed inbox records", zap.Int64("deleted", deleted))
	}
}
