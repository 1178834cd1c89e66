package messaging

import "context"

// Bus publishes serialized messages to a destination. Implementations
// decide what a destination maps to; the kafka bus maps it to a topic and
// falls back to the message type when empty.
type Bus interface {
	Publish(ctx context.Context, messageType string, content []byte, headers map[string]string, destination string) error
}
