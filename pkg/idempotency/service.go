package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/persistence"
)

// Option adjusts how a result is cached.
type Option func(*storeOptions)

type storeOptions struct {
	expiry         time.Duration
	parametersHash string
	metadata       map[string]string
	resultType     string
}

// WithExpiry overrides the configured default expiry for this result.
func WithExpiry(d time.Duration) Option {
	return func(o *storeOptions) { o.expiry = d }
}

// WithParametersHash attaches a hash of the operation parameters. When a
// key is reused with a different hash, Execute returns
// ErrParametersMismatch instead of the cached result.
func WithParametersHash(hash string) Option {
	return func(o *storeOptions) { o.parametersHash = hash }
}

// WithMetadata attaches free-form metadata to the cached record.
func WithMetadata(metadata map[string]string) Option {
	return func(o *storeOptions) { o.metadata = metadata }
}

// WithResultType overrides the recorded result type name.
func WithResultType(resultType string) Option {
	return func(o *storeOptions) { o.resultType = resultType }
}

// Service provides key-based caching of operation results. Use Execute
// for the common run-once-and-cache flow.
type Service interface {
	// Exists reports whether a live result is cached for key.
	Exists(ctx context.Context, key string) (bool, error)

	// Result returns the cached record for key, or an error wrapping
	// persistence.ErrEntityNotFound.
	Result(ctx context.Context, key string) (*Record, error)

	// Store caches a serialized result under key, replacing any previous
	// result.
	Store(ctx context.Context, key string, result []byte, opts ...Option) error

	// Remove drops the cached result for key.
	Remove(ctx context.Context, key string) error

	// CleanupExpired removes expired records and returns the number
	// deleted.
	CleanupExpired(ctx context.Context) (int64, error)

	lockKey(ctx context.Context, key string) (func(), error)
}

type service struct {
	store Store
	locks *keyLocks
	conf  Config
	log   *zap.Logger
}

func NewService(store Store, conf Config, log *zap.Logger) Service {
	return &service{
		store: store,
		locks: newKeyLocks(),
		conf:  conf,
		log:   log.With(zap.String("component", "idempotency")),
	}
}

func (s *service) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, key)
	if errors.Is(err, persistence.ErrEntityNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Result(ctx context.Context, key string) (*Record, error) {
	return s.store.Get(ctx, key)
}

func (s *service) Store(ctx context.Context, key string, result []byte, opts ...Option) error {
	options := storeOptions{expiry: s.conf.DefaultExpiry}
	for _, opt := range opts {
		opt(&options)
	}

	record := &Record{
		Key:            key,
		Result:         result,
		ResultType:     options.resultType,
		ParametersHash: options.parametersHash,
		Metadata:       options.metadata,
		ExecutedAt:     time.Now().UTC(),
	}
	if options.expiry > 0 {
		expiresAt := record.ExecutedAt.Add(options.expiry)
		record.ExpiresAt = &expiresAt
	}

	return s.store.Put(ctx, record)
}

func (s *service) Remove(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx)
}

var errLockHeld = errors.New("lock held")

// lockKey serializes concurrent executions of the same key within this
// process. Acquisition is retried at a fixed interval until the lock
// timeout elapses.
func (s *service) lockKey(ctx context.Context, key string) (func(), error) {
	maxRetries := uint64(s.conf.LockTimeout / s.conf.LockRetryInterval)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.conf.LockRetryInterval), maxRetries),
		ctx)

	var release func()
	err := backoff.Retry(func() error {
		r, ok := s.locks.tryAcquire(key)
		if !ok {
			return errLockHeld
		}
		release = r
		return nil
	}, policy)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("key %s: %w", key, ErrLockTimeout)
	}
	return release, nil
}

// Execute runs op at most once per key. A cached result is returned
// without invoking op; a failed op is never cached, so the next call
// with the same key runs it again.
func Execute[T any](ctx context.Context, svc Service, key string, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	if key == "" {
		return zero, fmt.Errorf("idempotency key is required")
	}

	options := storeOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	release, err := svc.lockKey(ctx, key)
	if err != nil {
		return zero, err
	}
	defer release()

	record, err := svc.Result(ctx, key)
	if err == nil {
		if options.parametersHash != "" && record.ParametersHash != "" &&
			options.parametersHash != record.ParametersHash {
			return zero, fmt.Errorf("key %s: %w", key, ErrParametersMismatch)
		}
		var cached T
		if len(record.Result) > 0 {
			if err := json.Unmarshal(record.Result, &cached); err != nil {
				return zero, fmt.Errorf("failed to decode cached result for key %s: %w", key, err)
			}
		}
		return cached, nil
	}
	if !errors.Is(err, persistence.ErrEntityNotFound) {
		return zero, err
	}

	result, err := op(ctx)
	if err != nil {
		return zero, err
	}

	content, err := json.Marshal(result)
	if err != nil {
		return result, fmt.Errorf("failed to encode result for key %s: %w", key, err)
	}

	storeOpts := append([]Option{WithResultType(fmt.Sprintf("%T", result))}, opts...)
	if err := svc.Store(ctx, key, content, storeOpts...); err != nil {
		// the operation already ran; losing the cache entry only risks a
		// re-execution, which the caller accepted by retrying
		return result, fmt.Errorf("failed to cache result for key %s: %w", key, err)
	}

	return result, nil
}
