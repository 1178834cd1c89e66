package modules

import (
	"github.com/dqube/vibemicro-commons/pkg/idempotency"
	"github.com/dqube/vibemicro-commons/pkg/messaging"
	"github.com/dqube/vibemicro-commons/pkg/messaging/inbox"
	"github.com/dqube/vibemicro-commons/pkg/messaging/kafka"
	"github.com/dqube/vibemicro-commons/pkg/messaging/outbox"
	"github.com/dqube/vibemicro-commons/pkg/saga"
	"go.uber.org/fx"
)

// NewMessagingModule provides the full delivery substrate: kafka bus,
// outbox, inbox, idempotency and saga orchestration.
func NewMessagingModule() fx.Option {
	return fx.Options(
		messaging.NewMessagingModule(),
		kafka.NewKafkaModule(),
		outbox.NewOutboxModule(),
		inbox.NewInboxModule(),
		idempotency.NewIdempotencyModule(),
		saga.NewSagaModule(),
	)
}
