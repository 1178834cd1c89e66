package mongo

import (
	"context"
	"fmt"

	"github.com/dqube/vibemicro-commons/pkg/persistence"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type mongoTxManager struct {
	mongo Admin
	log   *zap.Logger
}

func newTxManager(mongo Admin, log *zap.Logger) persistence.TxManager {
	return &mongoTxManager{
		mongo: mongo,
		log:   log,
	}
}

// isTransientError reports whether the error carries the mongo transient
// transaction label and is safe to retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	cmdErr, ok := err.(mongodriver.CommandError)
	if !ok {
		return false
	}
	return cmdErr.HasErrorLabel("TransientTransactionError")
}

func (t *mongoTxManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error) {
	const maxRetries = 3
	var result any
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			t.log.Warn("retrying transaction", zap.Int("attempt", attempt))
		}

		session, sessErr := t.mongo.StartSession(ctx)
		if sessErr != nil {
			if isTransientError(sessErr) && attempt < maxRetries {
				err = sessErr
				continue
			}
			return nil, fmt.Errorf("failed to start session: %w", sessErr)
		}

		result, err = session.WithTransaction(ctx, func(sessCtx mongodriver.SessionContext) (any, error) {
			return fn(sessCtx)
		})
		session.EndSession(ctx)

		if err == nil {
			return result, nil
		}

		if isTransientError(err) && attempt < maxRetries {
			t.log.Warn("transient transaction error, will retry",
				zap.Error(err),
				zap.Int("attempt", attempt))
			continue
		}

		t.log.Error("transaction failed", zap.Error(err), zap.Int("attempt", attempt))
		break
	}

	return result, fmt.Errorf("transaction failed after %d attempts: %w", maxRetries, err)
}
