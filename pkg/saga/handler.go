package saga

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
	"github.com/dqube/vibemicro-commons/pkg/messaging/outbox"
)

// NewEventHandler adapts the manager to a messaging.Handler so saga
// routing can be registered on an inbox. Commands emitted by handled
// instances are appended to the outbox, completing the loop: event in
// through the inbox, commands out through the outbox.
func NewEventHandler(m Manager, out outbox.Store) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		event := messaging.Event{
			ID:            msg.ID,
			Type:          msg.Type,
			Source:        msg.Source,
			CorrelationID: msg.CorrelationID,
			OccurredAt:    time.Now().UTC(),
			Payload:       msg.Content,
			Headers:       msg.Headers,
		}

		_, commands, err := m.HandleEvent(ctx, event)
		if err != nil {
			return err
		}

		for _, cmd := range commands {
			record := &outbox.Record{
				ID:            uuid.NewString(),
				MessageType:   cmd.MessageType,
				Content:       cmd.Content,
				Headers:       cmd.Headers,
				Destination:   cmd.Destination,
				CorrelationID: msg.CorrelationID,
			}
			if err := out.Add(ctx, record); err != nil {
				return err
			}
		}
		return nil
	}
}
