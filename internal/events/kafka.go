package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/models"
)

const (
	headerEventID   = "event-id"
	headerEventType = "event-type"

	defaultWriteTimeout = 10 * time.Second
)

// KafkaPublisher writes every event to the topic named by the event
// Events of one account share the key, so they keep order within a partition
type KafkaPublisher struct {
	writer *kafka.Writer
	logger logger.Logger
}

// ParseBrokers splits comma separated broker list
func ParseBrokers(value string) []string {
	var brokers []string
	for _, b := range strings.Split(value, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewKafkaPublisher(brokers []string, l logger.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers must not be empty")
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           defaultWriteTimeout,
			AllowAutoTopicCreation: true,
		},
		logger: l,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.Event) error {
	if err := p.writer.WriteMessages(ctx, message(event)); err != nil {
		return fmt.Errorf("failed to write event %s to kafka: %w", event.ID, err)
	}

	p.logger.Debug("Event written to kafka", "event_id", event.ID, "topic", event.Topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func message(event models.Event) kafka.Message {
	return kafka.Message{
		Topic: event.Topic,
		Key:   []byte(event.Key),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(event.ID.String())},
			{Key: headerEventType, Value: []byte(event.Topic)},
		},
	}
}
