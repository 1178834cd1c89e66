package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// orderFulfillment is a test definition: an order is placed, waits for
// payment, then completes or fails.
type orderFulfillment struct {
	handleErr error
}

func (d *orderFulfillment) Name() string { return "order-fulfillment" }

func (d *orderFulfillment) CanHandle(event messaging.Event) bool {
	switch event.Type {
	case "order.placed", "payment.captured", "payment.declined":
		return true
	}
	return false
}

func (d *orderFulfillment) Handle(ctx context.Context, instance *Saga, event messaging.Event) ([]Command, error) {
	if d.handleErr != nil {
		return nil, d.handleErr
	}

	switch event.Type {
	case "order.placed":
		if err := instance.Wait(); err != nil {
			return nil, err
		}
		return []Command{{
			MessageType: "payment.capture",
			Content:     event.Payload,
			Destination: "payments",
		}}, nil
	case "payment.captured":
		if err := instance.Resume(); err != nil {
			return nil, err
		}
		if err := instance.Complete(); err != nil {
			return nil, err
		}
		return []Command{{
			MessageType: "order.confirmed",
			Destination: "orders",
		}}, nil
	case "payment.declined":
		if err := instance.Resume(); err != nil {
			return nil, err
		}
		return nil, instance.Fail("payment declined")
	}
	return nil, nil
}

func event(eventType, correlationID string) messaging.Event {
	return messaging.Event{
		ID:            eventType + "-" + correlationID,
		Type:          eventType,
		CorrelationID: correlationID,
		OccurredAt:    time.Now().UTC(),
		Payload:       []byte(`{}`),
	}
}

func newTestManager(t *testing.T, store Store, definitions ...Definition) Manager {
	t.Helper()
	m, err := NewManager(store, definitions, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestManagerStart(t *testing.T) {
	ctx := context.Background()

	t.Run("should create running instance", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})

		instance, err := m.Start(ctx, "order-fulfillment", "order-42", map[string]string{"customer": "c-1"})
		require.NoError(t, err)

		assert.NotEmpty(t, instance.ID)
		assert.Equal(t, StateRunning, instance.State)
		assert.Equal(t, "order-42", instance.CorrelationID)
		assert.Equal(t, "c-1", instance.Get("customer"))
	})

	t.Run("should reject unknown definition", func(t *testing.T) {
		m := newTestManager(t, newStoreMock(), &orderFulfillment{})

		_, err := m.Start(ctx, "unknown", "order-42", nil)
		assert.Error(t, err)
	})

	t.Run("should reject empty correlation id", func(t *testing.T) {
		m := newTestManager(t, newStoreMock(), &orderFulfillment{})

		_, err := m.Start(ctx, "order-fulfillment", "", nil)
		assert.Error(t, err)
	})
}

func TestManagerHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("should route event and persist transition", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})
		instance, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		handled, commands, err := m.HandleEvent(ctx, event("order.placed", "order-42"))
		require.NoError(t, err)

		assert.Equal(t, 1, handled)
		require.Len(t, commands, 1)
		assert.Equal(t, "payment.capture", commands[0].MessageType)
		assert.Equal(t, StateWaiting, store.state(instance.ID))
	})

	t.Run("should drive instance through full lifecycle", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})
		instance, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		_, _, err = m.HandleEvent(ctx, event("order.placed", "order-42"))
		require.NoError(t, err)
		handled, commands, err := m.HandleEvent(ctx, event("payment.captured", "order-42"))
		require.NoError(t, err)

		assert.Equal(t, 1, handled)
		require.Len(t, commands, 1)
		assert.Equal(t, "order.confirmed", commands[0].MessageType)
		assert.Equal(t, StateCompleted, store.state(instance.ID))
	})

	t.Run("should leave terminal instance unchanged and handle zero", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})
		instance, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		_, _, err = m.HandleEvent(ctx, event("order.placed", "order-42"))
		require.NoError(t, err)
		_, _, err = m.HandleEvent(ctx, event("payment.captured", "order-42"))
		require.NoError(t, err)
		require.Equal(t, StateCompleted, store.state(instance.ID))

		handled, commands, err := m.HandleEvent(ctx, event("payment.captured", "order-42"))
		require.NoError(t, err)

		assert.Equal(t, 0, handled)
		assert.Empty(t, commands)
		assert.Equal(t, StateCompleted, store.state(instance.ID))
	})

	t.Run("should handle zero for unmatched correlation id", func(t *testing.T) {
		m := newTestManager(t, newStoreMock(), &orderFulfillment{})

		handled, commands, err := m.HandleEvent(ctx, event("order.placed", "order-99"))
		require.NoError(t, err)
		assert.Equal(t, 0, handled)
		assert.Empty(t, commands)
	})

	t.Run("should ignore event without correlation id", func(t *testing.T) {
		m := newTestManager(t, newStoreMock(), &orderFulfillment{})

		handled, _, err := m.HandleEvent(ctx, messaging.Event{Type: "order.placed"})
		require.NoError(t, err)
		assert.Equal(t, 0, handled)
	})

	t.Run("should ignore event no definition can handle", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})
		_, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		handled, _, err := m.HandleEvent(ctx, event("inventory.reserved", "order-42"))
		require.NoError(t, err)
		assert.Equal(t, 0, handled)
	})

	t.Run("should route to oldest instance when correlation id is shared", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})

		first, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)
		// force distinct creation times in the mock
		store.instances[first.ID].CreatedAt = time.Now().UTC().Add(-time.Minute)
		second, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		handled, _, err := m.HandleEvent(ctx, event("order.placed", "order-42"))
		require.NoError(t, err)

		assert.Equal(t, 1, handled)
		assert.Equal(t, StateWaiting, store.state(first.ID))
		assert.Equal(t, StateRunning, store.state(second.ID))
	})

	t.Run("should mark saga failed on handler error", func(t *testing.T) {
		store := newStoreMock()
		def := &orderFulfillment{handleErr: errors.New("boom")}
		m := newTestManager(t, store, def)
		instance, err := m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		handled, _, err := m.HandleEvent(ctx, event("order.placed", "order-42"))
		require.Error(t, err)
		assert.Equal(t, 0, handled)
		assert.Equal(t, StateFailed, store.state(instance.ID))
		assert.Equal(t, "boom", store.instances[instance.ID].Error)

		failed, err := store.Failed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, instance.ID, failed[0].ID)
	})
}

func TestManagerCleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("should remove old terminal instances only", func(t *testing.T) {
		store := newStoreMock()
		m := newTestManager(t, store, &orderFulfillment{})

		done, err := m.Start(ctx, "order-fulfillment", "order-1", nil)
		require.NoError(t, err)
		_, err = m.Start(ctx, "order-fulfillment", "order-2", nil)
		require.NoError(t, err)

		old := time.Now().UTC().Add(-48 * time.Hour)
		store.instances[done.ID].State = StateCompleted
		store.instances[done.ID].UpdatedAt = &old

		deleted, err := m.CleanupCompleted(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		active, err := m.Active(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})
}

func TestNewManager(t *testing.T) {
	t.Run("should reject duplicate definition names", func(t *testing.T) {
		_, err := NewManager(newStoreMock(), []Definition{&orderFulfillment{}, &orderFulfillment{}}, zap.NewNop())
		assert.Error(t, err)
	})
}
