package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poll runs fn once per interval until ctx is cancelled. Cycle errors are
// logged and swallowed so a single bad cycle never kills the loop; the only
// way out is cancellation. The first cycle runs immediately.
func Poll(ctx context.Context, interval time.Duration, log *zap.Logger, fn func(ctx context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("poll cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
