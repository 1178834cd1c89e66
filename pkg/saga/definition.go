package saga

import (
	"context"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// Command is a follow-up message a saga emits while handling an event.
// The caller dispatches commands, typically by adding them to the outbox
// within the same transaction as the saga update.
type Command struct {
	MessageType string
	Content     []byte
	Headers     map[string]string
	Destination string
}

// Definition describes one saga type: which events it reacts to and how
// an instance advances. Definitions are registered at startup; Handle
// mutates the instance's state and metadata and returns follow-up
// commands.
type Definition interface {
	// Name identifies the saga type. One active instance per
	// (name, correlation id) pair is expected.
	Name() string

	// CanHandle reports whether this saga type reacts to the event.
	CanHandle(event messaging.Event) bool

	// Handle advances the instance. The manager persists the mutated
	// instance after Handle returns without error.
	Handle(ctx context.Context, instance *Saga, event messaging.Event) ([]Command, error)
}
