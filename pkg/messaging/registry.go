package messaging

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Handler processes a single received message. Returning an error signals
// that delivery should be retried later.
type Handler func(ctx context.Context, msg Message) error

// HandlerRegistry maps message types to handlers. Registration normally
// happens during startup; Resolve is safe for concurrent use afterwards.
type HandlerRegistry interface {
	Register(messageType string, handler Handler) error
	Resolve(messageType string) (Handler, bool)
	Types() []string
}

type handlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewHandlerRegistry() HandlerRegistry {
	return &handlerRegistry{
		handlers: make(map[string]Handler),
	}
}

func (r *handlerRegistry) Register(messageType string, handler Handler) error {
	if messageType == "" {
		return fmt.Errorf("message type is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required for message type %q", messageType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[messageType]; exists {
		return fmt.Errorf("handler already registered for message type %q", messageType)
	}
	r.handlers[messageType] = handler
	return nil
}

func (r *handlerRegistry) Resolve(messageType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[messageType]
	return handler, ok
}

func (r *handlerRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := lo.Keys(r.handlers)
	sort.Strings(types)
	return types
}
