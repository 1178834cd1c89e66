package inbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dqube/vibemicro-commons/pkg/persistence"
)

// storeMock is an in-memory Store used by receiver and processor tests.
// ClaimPending returns records in group and sequence order like the
// mongo implementation.
type storeMock struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string

	released   []string
	cleanupRan int
}

func newStoreMock() *storeMock {
	return &storeMock{records: make(map[string]*Record)}
}

func (m *storeMock) Add(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[record.ID]; exists {
		return persistence.ErrDuplicateEntity
	}
	record.Status = StatusPending
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}
	copied := *record
	m.records[record.ID] = &copied
	m.order = append(m.order, record.ID)
	return nil
}

func (m *storeMock) ClaimPending(ctx context.Context, batchSize int, lockTimeout time.Duration) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*Record
	for _, id := range m.order {
		if m.records[id].Status == StatusPending {
			pending = append(pending, m.records[id])
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].MessageGroup != pending[j].MessageGroup {
			return pending[i].MessageGroup < pending[j].MessageGroup
		}
		if pending[i].SequenceNumber != pending[j].SequenceNumber {
			return pending[i].SequenceNumber < pending[j].SequenceNumber
		}
		return pending[i].ReceivedAt.Before(pending[j].ReceivedAt)
	})

	var claimed []Record
	for _, record := range pending {
		if len(claimed) >= batchSize {
			break
		}
		record.Status = StatusProcessing
		claimed = append(claimed, *record)
	}
	return claimed, nil
}

func (m *storeMock) MarkProcessed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id].Status = StatusProcessed
	now := time.Now()
	m.records[id].ProcessedAt = &now
	return nil
}

func (m *storeMock) MarkFailed(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id].Status = StatusFailed
	m.records[id].Error = reason
	return nil
}

func (m *storeMock) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id].Status = StatusPending
	m.released = append(m.released, id)
	return nil
}

func (m *storeMock) RetryFailed(ctx context.Context, maxRetryCount int) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var requeued, abandoned int64
	for _, id := range m.order {
		record := m.records[id]
		if record.Status != StatusFailed {
			continue
		}
		record.RetryCount++
		if record.RetryCount < maxRetryCount {
			record.Status = StatusPending
			requeued++
		} else {
			record.Status = StatusAbandoned
			abandoned++
		}
	}
	return requeued, abandoned, nil
}

func (m *storeMock) Requeue(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id].Status = StatusPending
	m.records[id].RetryCount = 0
	return nil
}

func (m *storeMock) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupRan++
	return 0, nil
}

func (m *storeMock) Abandoned(ctx context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []Record
	for _, id := range m.order {
		if m.records[id].Status == StatusAbandoned {
			records = append(records, *m.records[id])
		}
	}
	return records, nil
}

func (m *storeMock) status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Status
}
