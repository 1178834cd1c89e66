package inbox

import (
	"time"
)

// Status is the lifecycle state of an inbox record.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusFailed     Status = "FAILED"
	StatusAbandoned  Status = "ABANDONED"
)

var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusProcessed, StatusFailed, StatusPending},
	StatusFailed:     {StatusPending, StatusAbandoned},
	StatusAbandoned:  {StatusPending},
}

// CanTransition reports whether moving from s to target is allowed.
// Processing back to pending is a release, used when a message must wait
// for an earlier message of its group.
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

// Record is a received message persisted for deduplication and ordered
// handling. The message id is the document id, so a redelivery of the
// same message collides on insert.
type Record struct {
	ID             string            `bson:"_id"`
	MessageType    string            `bson:"messageType"`
	Content        []byte            `bson:"content"`
	Headers        map[string]string `bson:"headers,omitempty"`
	Source         string            `bson:"source,omitempty"`
	CorrelationID  string            `bson:"correlationId,omitempty"`
	MessageGroup   string            `bson:"messageGroup,omitempty"`
	SequenceNumber int64             `bson:"sequenceNumber,omitempty"`
	Status         Status            `bson:"status"`
	RetryCount     int               `bson:"retryCount"`
	ReceivedAt     time.Time         `bson:"receivedAt"`
	ProcessedAt    *time.Time        `bson:"processedAt,omitempty"`
	LockExpiresAt  *time.Time        `bson:"lockExpiresAt,omitempty"`
	Error          string            `bson:"error,omitempty"`
}
