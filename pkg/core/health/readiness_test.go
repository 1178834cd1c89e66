package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadiness(t *testing.T) {
	t.Run("not ready until every component is marked", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		readyA := r.AddComponent("store")
		readyB := r.AddComponent("bus")

		assert.False(t, r.IsReady())
		readyA()
		assert.False(t, r.IsReady())
		readyB()
		assert.True(t, r.IsReady())
	})

	t.Run("marking twice is harmless", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		ready := r.AddComponent("store")

		ready()
		ready()

		assert.True(t, r.IsReady())
	})

	t.Run("status lists components", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		r.AddComponent("store")()

		status := r.GetStatus()

		require.Len(t, status.Components, 1)
		assert.Equal(t, "store", status.Components[0].Name)
		assert.True(t, status.Components[0].Ready)
	})
}

func TestWaitReady(t *testing.T) {
	t.Run("returns immediately with no components", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		assert.NoError(t, r.WaitReady(context.Background()))
	})

	t.Run("unblocks when components become ready", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		ready := r.AddComponent("store")

		done := make(chan error, 1)
		go func() { done <- r.WaitReady(context.Background()) }()

		ready()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("WaitReady did not unblock")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		r.AddComponent("store")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, r.WaitReady(ctx), context.Canceled)
	})
}
