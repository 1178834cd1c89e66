package messaging

import "time"

// Message is the transport-neutral envelope moved across service
// boundaries. Content is an opaque serialized payload; interpretation is
// up to the registered handler for Type.
type Message struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Content       []byte            `json:"content"`
	Headers       map[string]string `json:"headers,omitempty"`
	Source        string            `json:"source,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// Header returns the header value for key, or "" when absent.
func (m Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// Event describes something that happened in a producing service. Events
// drive saga progression and are routed by correlation id.
type Event struct {
	ID            string            `json:"event_id"`
	Type          string            `json:"type"`
	Source        string            `json:"source,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Payload       []byte            `json:"payload,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}
