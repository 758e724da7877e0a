package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes event envelopes to a Kafka topic. Messages are keyed
// by pair symbol so one pair's events land on one partition and keep their
// order.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Publish(ev Envelope) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Pair),
		Value: payload,
	}
	if err := s.writer.WriteMessages(context.Background(), msg); err != nil {
		return fmt.Errorf("produce %s event for %s: %w", ev.Type, ev.Pair, err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.writer.Close() }
