package saga

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
	"github.com/dqube/vibemicro-commons/pkg/messaging/outbox"
)

// outboxMock records added outbox records.
type outboxMock struct {
	mu      sync.Mutex
	records []*outbox.Record
}

func (m *outboxMock) Add(ctx context.Context, record *outbox.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *outboxMock) ClaimPending(ctx context.Context, batchSize int, lockTimeout time.Duration) ([]outbox.Record, error) {
	return nil, nil
}
func (m *outboxMock) MarkProcessed(ctx context.Context, id string) error            { return nil }
func (m *outboxMock) MarkFailed(ctx context.Context, id string, reason string) error { return nil }
func (m *outboxMock) RetryFailed(ctx context.Context, maxRetryCount int) (int64, int64, error) {
	return 0, 0, nil
}
func (m *outboxMock) Requeue(ctx context.Context, id string) error { return nil }
func (m *outboxMock) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (m *outboxMock) Abandoned(ctx context.Context, limit int) ([]outbox.Record, error) {
	return nil, nil
}

func TestEventHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("should route message and queue resulting commands", func(t *testing.T) {
		store := newStoreMock()
		m, err := NewManager(store, []Definition{&orderFulfillment{}}, zap.NewNop())
		require.NoError(t, err)
		_, err = m.Start(ctx, "order-fulfillment", "order-42", nil)
		require.NoError(t, err)

		out := &outboxMock{}
		handler := NewEventHandler(m, out)

		err = handler(ctx, messaging.Message{
			ID:            "msg-1",
			Type:          "order.placed",
			Content:       []byte(`{}`),
			CorrelationID: "order-42",
		})
		require.NoError(t, err)

		require.Len(t, out.records, 1)
		assert.Equal(t, "payment.capture", out.records[0].MessageType)
		assert.Equal(t, "payments", out.records[0].Destination)
		assert.Equal(t, "order-42", out.records[0].CorrelationID)
		assert.NotEmpty(t, out.records[0].ID)
	})

	t.Run("should queue nothing when no instance matches", func(t *testing.T) {
		m, err := NewManager(newStoreMock(), []Definition{&orderFulfillment{}}, zap.NewNop())
		require.NoError(t, err)

		out := &outboxMock{}
		handler := NewEventHandler(m, out)

		err = handler(ctx, messaging.Message{
			ID:            "msg-1",
			Type:          "order.placed",
			CorrelationID: "order-99",
		})
		require.NoError(t, err)
		assert.Empty(t, out.records)
	})
}
