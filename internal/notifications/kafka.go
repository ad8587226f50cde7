package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
}

func newKafkaPublisher(brokers []string, topic string) *kafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &kafkaPublisher{writer: writer, topic: topic}
}

func (k *kafkaPublisher) name() string { return "kafka" }

func (k *kafkaPublisher) close() error { return k.writer.Close() }

// publish keys messages by claim id so one claim's events stay ordered
// within a partition.
func (k *kafkaPublisher) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	key := event.ClaimID
	if key == "" {
		key = event.RunID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  event.Time,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to topic %s: %w", k.topic, err)
	}
	return nil
}
