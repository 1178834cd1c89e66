package inbox

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/logger"
	"github.com/dqube/vibemicro-commons/pkg/messaging"
	"github.com/dqube/vibemicro-commons/pkg/persistence"
)

// Header names the receiver reads from incoming messages.
const (
	HeaderMessageGroup   = "message-group"
	HeaderSequenceNumber = "sequence-number"
)

// Receiver is the consumer-facing entry point of the inbox. It persists
// incoming messages for later processing and silently drops redeliveries.
type Receiver interface {
	Receive(ctx context.Context, msg messaging.Message) error
}

type receiver struct {
	store Store
}

func NewReceiver(store Store) Receiver {
	return &receiver{store: store}
}

// Receive stores the message as a pending inbox record. A message whose
// id was seen before is a redelivery and is acknowledged without effect.
func (r *receiver) Receive(ctx context.Context, msg messaging.Message) error {
	record := &Record{
		ID:            msg.ID,
		MessageType:   msg.Type,
		Content:       msg.Content,
		Headers:       msg.Headers,
		Source:        msg.Source,
		CorrelationID: msg.CorrelationID,
		MessageGroup:  msg.Header(HeaderMessageGroup),
	}
	if seq := msg.Header(HeaderSequenceNumber); seq != "" {
		if n, err := strconv.ParseInt(seq, 10, 64); err == nil {
			record.SequenceNumber = n
		}
	}

	err := r.store.Add(ctx, record)
	if errors.Is(err, persistence.ErrDuplicateEntity) {
		logger.Get(ctx).Debug("duplicate message dropped",
			zap.String("id", msg.ID),
			zap.String("message-type", msg.Type))
		return nil
	}
	return err
}
