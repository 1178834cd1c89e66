package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// Manager routes events to saga instances by correlation id and persists
// their transitions. Follow-up commands returned by HandleEvent are the
// caller's to dispatch, typically through the outbox.
type Manager interface {
	// Start creates a new running instance of the named saga type.
	Start(ctx context.Context, definitionName, correlationID string, metadata map[string]string) (*Saga, error)

	// HandleEvent routes the event to every matching active instance and
	// returns how many handled it plus their accumulated commands. An
	// event that matches no instance, or only terminal ones, handles
	// zero and is not an error.
	HandleEvent(ctx context.Context, event messaging.Event) (int, []Command, error)

	// ByCorrelationID returns all instances sharing the correlation id.
	ByCorrelationID(ctx context.Context, correlationID string) ([]Saga, error)

	// Active returns all non-terminal instances.
	Active(ctx context.Context) ([]Saga, error)

	// Save persists a mutated instance.
	Save(ctx context.Context, instance *Saga) error

	// CleanupCompleted removes terminal instances past retention.
	CleanupCompleted(ctx context.Context, olderThan time.Duration) (int64, error)
}

type manager struct {
	store       Store
	definitions []Definition
	log         *zap.Logger
}

func NewManager(store Store, definitions []Definition, log *zap.Logger) (Manager, error) {
	names := lo.Map(definitions, func(d Definition, _ int) string { return d.Name() })
	if len(lo.Uniq(names)) != len(names) {
		return nil, fmt.Errorf("saga definition names must be unique: %v", names)
	}

	return &manager{
		store:       store,
		definitions: definitions,
		log:         log.With(zap.String("component", "saga-manager")),
	}, nil
}

func (m *manager) Start(ctx context.Context, definitionName, correlationID string, metadata map[string]string) (*Saga, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("correlation id is required")
	}
	if _, ok := m.definition(definitionName); !ok {
		return nil, fmt.Errorf("unknown saga definition %q", definitionName)
	}

	instance := &Saga{
		ID:            uuid.NewString(),
		Name:          definitionName,
		CorrelationID: correlationID,
		State:         StateRunning,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.store.Insert(ctx, instance); err != nil {
		return nil, err
	}

	m.log.Info("saga started",
		zap.String("saga-id", instance.ID),
		zap.String("name", definitionName),
		zap.String("correlation-id", correlationID))
	return instance, nil
}

func (m *manager) HandleEvent(ctx context.Context, event messaging.Event) (int, []Command, error) {
	if event.CorrelationID == "" {
		m.log.Debug("event without correlation id ignored", zap.String("type", event.Type))
		return 0, nil, nil
	}

	handled := 0
	var commands []Command

	for _, def := range m.definitions {
		if !def.CanHandle(event) {
			continue
		}

		instances, err := m.store.ByNameAndCorrelationID(ctx, def.Name(), event.CorrelationID)
		if err != nil {
			return handled, commands, err
		}

		active := lo.Filter(instances, func(s Saga, _ int) bool { return s.State.IsActive() })
		if len(active) == 0 {
			// no instance, or only terminal ones: a no-op for this type
			m.log.Debug("no active saga instance for event",
				zap.String("name", def.Name()),
				zap.String("type", event.Type),
				zap.String("correlation-id", event.CorrelationID))
			continue
		}
		if len(active) > 1 {
			// the correlation id should key a single instance per type
			m.log.Error("multiple active saga instances share correlation id",
				zap.String("name", def.Name()),
				zap.String("correlation-id", event.CorrelationID),
				zap.Int("instances", len(active)))
		}
		instance := active[0]

		cmds, err := def.Handle(ctx, &instance, event)
		if err != nil {
			// a handler error is terminal for the instance: mark it
			// failed so it surfaces on the dead-letter queries
			if failErr := instance.Fail(err.Error()); failErr != nil {
				m.log.Warn("saga already terminal on handler error",
					zap.String("saga-id", instance.ID),
					zap.Error(failErr))
			}
			if saveErr := m.Save(ctx, &instance); saveErr != nil {
				m.log.Error("failed to persist failed saga",
					zap.String("saga-id", instance.ID),
					zap.Error(saveErr))
			}
			return handled, commands, fmt.Errorf("saga %s failed to handle event %s: %w", instance.ID, event.Type, err)
		}

		if err := m.Save(ctx, &instance); err != nil {
			return handled, commands, err
		}

		handled++
		commands = append(commands, cmds...)

		m.log.Debug("saga handled event",
			zap.String("saga-id", instance.ID),
			zap.String("type", event.Type),
			zap.String("state", string(instance.State)),
			zap.Int("commands", len(cmds)))
	}

	return handled, commands, nil
}

func (m *manager) ByCorrelationID(ctx context.Context, correlationID string) ([]Saga, error) {
	return m.store.ByCorrelationID(ctx, correlationID)
}

func (m *manager) Active(ctx context.Context) ([]Saga, error) {
	return m.store.Active(ctx)
}

func (m *manager) Save(ctx context.Context, instance *Saga) error {
	if instance.UpdatedAt == nil {
		now := time.Now().UTC()
		instance.UpdatedAt = &now
	}
	return m.store.Update(ctx, instance)
}

func (m *manager) CleanupCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	return m.store.CleanupCompleted(ctx, olderThan)
}

func (m *manager) definition(name string) (Definition, bool) {
	return lo.Find(m.definitions, func(d Definition) bool { return d.Name() == name })
}
