package saga

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dqube/vibemicro-commons/pkg/persistence"
)

// storeMock is an in-memory Store used by manager tests.
type storeMock struct {
	mu        sync.Mutex
	instances map[string]*Saga
}

func newStoreMock() *storeMock {
	return &storeMock{instances: make(map[string]*Saga)}
}

func (m *storeMock) Insert(ctx context.Context, instance *Saga) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.instances[instance.ID]; exists {
		return persistence.ErrDuplicateEntity
	}
	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = time.Now().UTC()
	}
	instance.Version = 1
	copied := *instance
	m.instances[instance.ID] = &copied
	return nil
}

func (m *storeMock) Update(ctx context.Context, instance *Saga) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.instances[instance.ID]
	if !ok || stored.Version != instance.Version {
		return fmt.Errorf("saga %s: %w", instance.ID, persistence.ErrEntityNotFound)
	}
	instance.Version++
	copied := *instance
	m.instances[instance.ID] = &copied
	return nil
}

func (m *storeMock) ByID(ctx context.Context, id string) (*Saga, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	instance, ok := m.instances[id]
	if !ok {
		return nil, fmt.Errorf("saga %s: %w", id, persistence.ErrEntityNotFound)
	}
	copied := *instance
	return &copied, nil
}

func (m *storeMock) ByCorrelationID(ctx context.Context, correlationID string) ([]Saga, error) {
	return m.filter(func(s *Saga) bool { return s.CorrelationID == correlationID }), nil
}

func (m *storeMock) ByNameAndCorrelationID(ctx context.Context, name, correlationID string) ([]Saga, error) {
	return m.filter(func(s *Saga) bool {
		return s.Name == name && s.CorrelationID == correlationID
	}), nil
}

func (m *storeMock) Active(ctx context.Context) ([]Saga, error) {
	return m.filter(func(s *Saga) bool { return s.State.IsActive() }), nil
}

func (m *storeMock) Failed(ctx context.Context, limit int) ([]Saga, error) {
	failed := m.filter(func(s *Saga) bool { return s.State == StateFailed })
	if len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (m *storeMock) CleanupCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var deleted int64
	for id, instance := range m.instances {
		if instance.State.IsTerminal() && instance.UpdatedAt != nil && instance.UpdatedAt.Before(cutoff) {
			delete(m.instances, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *storeMock) filter(keep func(*Saga) bool) []Saga {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Saga
	for _, instance := range m.instances {
		if keep(instance) {
			result = append(result, *instance)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (m *storeMock) state(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instances[id].State
}
