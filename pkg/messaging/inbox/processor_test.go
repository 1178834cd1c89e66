package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

type handledLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *handledLog) add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *handledLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

func newTestProcessor(store Store, registry messaging.HandlerRegistry, conf Config) *Processor {
	applyDefaults(&conf)
	return NewProcessor(store, registry, conf, zap.NewNop())
}

func groupedRecord(id, group string, seq int64) *Record {
	return &Record{
		ID:             id,
		MessageType:    "order.created",
		Content:        []byte(`{}`),
		MessageGroup:   group,
		SequenceNumber: seq,
	}
}

func TestInboxProcessorCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("should dispatch records to registered handler", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		handled := &handledLog{}
		require.NoError(t, registry.Register("order.created", func(ctx context.Context, msg messaging.Message) error {
			handled.add(msg.ID)
			return nil
		}))

		require.NoError(t, store.Add(ctx, groupedRecord("1", "", 0)))
		require.NoError(t, store.Add(ctx, groupedRecord("2", "", 0)))

		p := newTestProcessor(store, registry, Config{})
		require.NoError(t, p.processCycle(ctx))

		assert.ElementsMatch(t, []string{"1", "2"}, handled.all())
		assert.Equal(t, StatusProcessed, store.status("1"))
		assert.Equal(t, StatusProcessed, store.status("2"))
	})

	t.Run("should mark record failed when no handler is registered", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		require.NoError(t, store.Add(ctx, groupedRecord("1", "", 0)))

		p := newTestProcessor(store, registry, Config{})
		require.NoError(t, p.processCycle(ctx))

		assert.Equal(t, StatusFailed, store.status("1"))
	})

	t.Run("should handle group members in sequence order", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		handled := &handledLog{}
		require.NoError(t, registry.Register("order.created", func(ctx context.Context, msg messaging.Message) error {
			handled.add(msg.ID)
			return nil
		}))

		require.NoError(t, store.Add(ctx, groupedRecord("b", "order-1", 2)))
		require.NoError(t, store.Add(ctx, groupedRecord("a", "order-1", 1)))

		p := newTestProcessor(store, registry, Config{})
		require.NoError(t, p.processCycle(ctx))

		assert.Equal(t, []string{"a", "b"}, handled.all())
	})

	t.Run("should release later group members when an earlier one fails", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		handled := &handledLog{}
		require.NoError(t, registry.Register("order.created", func(ctx context.Context, msg messaging.Message) error {
			if msg.ID == "a" {
				return errors.New("boom")
			}
			handled.add(msg.ID)
			return nil
		}))

		require.NoError(t, store.Add(ctx, groupedRecord("a", "order-1", 1)))
		require.NoError(t, store.Add(ctx, groupedRecord("b", "order-1", 2)))
		require.NoError(t, store.Add(ctx, groupedRecord("x", "order-2", 1)))

		p := newTestProcessor(store, registry, Config{})
		require.NoError(t, p.processCycle(ctx))

		assert.Equal(t, StatusFailed, store.status("a"))
		assert.Equal(t, StatusPending, store.status("b"))
		assert.Contains(t, store.released, "b")
		// other groups are unaffected
		assert.Equal(t, []string{"x"}, handled.all())
	})

	t.Run("should process released group members after the failure is resolved", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		handled := &handledLog{}
		failing := true
		require.NoError(t, registry.Register("order.created", func(ctx context.Context, msg messaging.Message) error {
			if msg.ID == "a" && failing {
				return errors.New("boom")
			}
			handled.add(msg.ID)
			return nil
		}))

		require.NoError(t, store.Add(ctx, groupedRecord("a", "order-1", 1)))
		require.NoError(t, store.Add(ctx, groupedRecord("b", "order-1", 2)))

		p := newTestProcessor(store, registry, Config{})
		require.NoError(t, p.processCycle(ctx))
		require.Equal(t, StatusFailed, store.status("a"))

		failing = false
		require.NoError(t, p.processCycle(ctx))

		assert.Equal(t, []string{"a", "b"}, handled.all())
		assert.Equal(t, StatusProcessed, store.status("a"))
		assert.Equal(t, StatusProcessed, store.status("b"))
	})

	t.Run("should abandon record after retry budget is exhausted", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		require.NoError(t, registry.Register("order.created", func(ctx context.Context, msg messaging.Message) error {
			return errors.New("boom")
		}))
		require.NoError(t, store.Add(ctx, groupedRecord("1", "", 0)))

		p := newTestProcessor(store, registry, Config{MaxRetryCount: 2})
		for i := 0; i < 3; i++ {
			require.NoError(t, p.processCycle(ctx))
		}

		assert.Equal(t, StatusAbandoned, store.status("1"))
	})

	t.Run("should stop when context is cancelled", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()
		require.NoError(t, store.Add(ctx, groupedRecord("1", "", 0)))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		p := newTestProcessor(store, registry, Config{})
		err := p.processCycle(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("should run cleanup once per interval", func(t *testing.T) {
		store := newStoreMock()
		registry := messaging.NewHandlerRegistry()

		p := newTestProcessor(store, registry, Config{CleanupEnabled: true, CleanupInterval: time.Hour})
		require.NoError(t, p.processCycle(ctx))
		require.NoError(t, p.processCycle(ctx))

		assert.Equal(t, 1, store.cleanupRan)
	})
}
