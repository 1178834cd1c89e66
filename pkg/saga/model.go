package saga

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a saga instance.
type State string

const (
	// StateRunning marks a saga actively progressing.
	StateRunning State = "RUNNING"
	// StateWaiting marks a saga paused for external input.
	StateWaiting State = "WAITING"
	// StateCompleted, StateFailed and StateCancelled are terminal.
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

var validTransitions = map[State][]State{
	StateRunning: {StateWaiting, StateCompleted, StateFailed, StateCancelled},
	StateWaiting: {StateRunning, StateCompleted, StateFailed, StateCancelled},
}

// CanTransition reports whether moving from s to target is allowed.
// Terminal states allow no transitions.
func (s State) CanTransition(target State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// IsActive reports whether the saga still accepts events.
func (s State) IsActive() bool {
	return s == StateRunning || s == StateWaiting
}

// Saga is one instance of a long-running process, persisted as a state
// machine and advanced by events routed via its correlation id.
type Saga struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	CorrelationID string            `bson:"correlationId"`
	State         State             `bson:"state"`
	Metadata      map[string]string `bson:"metadata,omitempty"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     *time.Time        `bson:"updatedAt,omitempty"`
	Error         string            `bson:"error,omitempty"`
	Version       int64             `bson:"version"`
}

func (s *Saga) transition(target State) error {
	if !s.State.CanTransition(target) {
		return fmt.Errorf("saga %s: invalid transition %s -> %s", s.ID, s.State, target)
	}
	s.State = target
	now := time.Now().UTC()
	s.UpdatedAt = &now
	return nil
}

// Wait pauses the saga for external input.
func (s *Saga) Wait() error {
	return s.transition(StateWaiting)
}

// Resume returns a waiting saga to running.
func (s *Saga) Resume() error {
	return s.transition(StateRunning)
}

// Complete finishes the saga successfully.
func (s *Saga) Complete() error {
	return s.transition(StateCompleted)
}

// Fail finishes the saga with an error.
func (s *Saga) Fail(reason string) error {
	if err := s.transition(StateFailed); err != nil {
		return err
	}
	s.Error = reason
	return nil
}

// Cancel aborts the saga.
func (s *Saga) Cancel() error {
	return s.transition(StateCancelled)
}

// Set stores a metadata value on the saga's working state.
func (s *Saga) Set(key, value string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
}

// Get returns a metadata value, or "" when absent.
func (s *Saga) Get(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
