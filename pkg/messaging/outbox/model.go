package outbox

import (
	"time"
)

// Status is the lifecycle state of an outbox record.
type Status string

const (
	// StatusPending marks a record waiting to be picked up.
	StatusPending Status = "PENDING"
	// StatusProcessing marks a record claimed by a processor under a lease.
	StatusProcessing Status = "PROCESSING"
	// StatusProcessed marks a record delivered to the bus.
	StatusProcessed Status = "PROCESSED"
	// StatusFailed marks a record whose delivery attempt failed; it is
	// retried until the retry budget is exhausted.
	StatusFailed Status = "FAILED"
	// StatusAbandoned marks a record that exhausted its retries and needs
	// operator attention.
	StatusAbandoned Status = "ABANDONED"
)

var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusProcessed, StatusFailed},
	StatusFailed:     {StatusPending, StatusAbandoned},
	StatusAbandoned:  {StatusPending},
}

// CanTransition reports whether moving from s to target is allowed.
// Processed is terminal; abandoned records can be requeued by an operator.
func (s Status) CanTransition(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the record needs no further processing.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed
}

// Record is a message persisted in the same transaction as the business
// change that produced it, later relayed to the message bus.
type Record struct {
	ID            string            `bson:"_id"`
	MessageType   string            `bson:"messageType"`
	Content       []byte            `bson:"content"`
	Headers       map[string]string `bson:"headers,omitempty"`
	Destination   string            `bson:"destination,omitempty"`
	CorrelationID string            `bson:"correlationId,omitempty"`
	Status        Status            `bson:"status"`
	RetryCount    int               `bson:"retryCount"`
	CreatedAt     time.Time         `bson:"createdAt"`
	ProcessedAt   *time.Time        `bson:"processedAt,omitempty"`
	LockExpiresAt *time.Time        `bson:"lockExpiresAt,omitempty"`
	Error         string            `bson:"error,omitempty"`
}
