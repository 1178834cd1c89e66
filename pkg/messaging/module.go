package messaging

import "go.uber.org/fx"

// NewMessagingModule provides the shared handler registry.
func NewMessagingModule() fx.Option {
	return fx.Provide(
		NewHandlerRegistry,
	)
}
