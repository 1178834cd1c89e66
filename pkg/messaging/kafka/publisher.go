package kafka

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/messaging"
)

// producer abstracts the confluent producer for testing.
type producer interface {
	Produce(message *kafka.Message, deliveryChan chan kafka.Event) error
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	Close()
}

type publisher struct {
	producer producer
	conf     Config
	log      *zap.Logger
}

// NewPublisher creates a kafka-backed messaging.Bus. Publish blocks until
// the broker acknowledges delivery or the delivery timeout expires.
func NewPublisher(conf Config, log *zap.Logger) (messaging.Bus, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": conf.Brokers,
		"acks":              "all",
	}
	if conf.ClientID != "" {
		_ = configMap.SetKey("client.id", conf.ClientID)
	}

	p, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &publisher{producer: p, conf: conf, log: log}, nil
}

func (p *publisher) Publish(ctx context.Context, messageType string, content []byte, headers map[string]string, destination string) error {
	topic := destination
	if topic == "" {
		topic = messageType
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(messageType),
		Value:          content,
		Headers:        buildHeaders(messageType, headers),
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message to topic %s: %w", topic, err)
	}

	deliveryCtx, cancel := context.WithTimeout(ctx, p.conf.DeliveryTimeout)
	defer cancel()

	select {
	case <-deliveryCtx.Done():
		return fmt.Errorf("timed out waiting for delivery to topic %s: %w", topic, deliveryCtx.Err())
	case ev := <-deliveryChan:
		delivered, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event for topic %s: %v", topic, ev)
		}
		if delivered.TopicPartition.Error != nil {
			return fmt.Errorf("failed to deliver message to topic %s: %w", topic, delivered.TopicPartition.Error)
		}
	}

	p.log.Debug("message published",
		zap.String("topic", topic),
		zap.String("message-type", messageType))
	return nil
}

func buildHeaders(messageType string, headers map[string]string) []kafka.Header {
	result := make([]kafka.Header, 0, len(headers)+2)
	result = append(result,
		kafka.Header{Key: "message-type", Value: []byte(messageType)},
		kafka.Header{Key: "message-id", Value: []byte(uuid.NewString())},
	)
	for key, value := range headers {
		result = append(result, kafka.Header{Key: key, Value: []byte(value)})
	}
	return result
}

func (p *publisher) waitForBrokers(ctx context.Context) error {
	if p.conf.ReadinessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.conf.ReadinessTimeout)
		defer cancel()
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka brokers not reachable: %w", ctx.Err())
		default:
		}

		if meta, err := p.producer.GetMetadata(nil, false, 5000); err == nil && len(meta.Brokers) > 0 {
			return nil
		}
	}
}

func (p *publisher) close() {
	p.producer.Close()
}
