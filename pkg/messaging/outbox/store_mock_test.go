package outbox

import (
	"context"
	"sync"
	"time"
)

// storeMock is an in-memory Store used by processor tests.
type storeMock struct {
	mu      sync.Mutex
	records map[string]*Record

	claimErr   error
	markErrs   map[string]error
	cleanupRan int
	cleaned    int64
}

func newStoreMock() *storeMock {
	return &storeMock{
		records:  make(map[string]*Record),
		markErrs: make(map[string]error),
	}
}

func (m *storeMock) Add(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.Status = StatusPending
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *storeMock) ClaimPending(ctx context.Context, batchSize int, lockTimeout time.Duration) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return nil, m.claimErr
	}

	var claimed []Record
	for _, record := range m.records {
		if len(claimed) >= batchSize {
			break
		}
		if record.Status == StatusPending {
			record.Status = StatusProcessing
			claimed = append(claimed, *record)
		}
	}
	return claimed, nil
}

func (m *storeMock) MarkProcessed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.markErrs[id]; err != nil {
		return err
	}
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

func (m *storeMock) RetryFailed(ctx context.Context, maxRetryCount int) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var requeued, abandoned int64
	for _, record := range m.records {
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
	return m.cleaned, nil
}

func (m *storeMock) Abandoned(ctx context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []Record
	for _, record := range m.records {
		if record.Status == StatusAbandoned {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (m *storeMock) status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Status
}

func (m *storeMock) retryCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].RetryCount
}
