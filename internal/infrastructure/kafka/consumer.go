package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/BookShareService/internal/models"
	"github.com/segmentio/kafka-go"
)

// EventHandler reacts to a decoded domain event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event models.Event) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  messageReader
	topic   string
	handler EventHandler
}

func NewConsumer(brokers []string, topic, groupID string, handler EventHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		topic:   topic,
		handler: handler,
	}
}

// Consume reads until ctx is cancelled. A message that fails to decode or to
// be handled is logged and skipped.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka consumer stopped", "topic", c.topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.HandleMessage(ctx, msg); err != nil {
			// TODO: Send to dead-letter queue
			slog.Error("failed to handle Kafka message", "topic", msg.Topic, "key", string(msg.Key), "error", err)
		}
	}
}

func (c *Consumer) HandleMessage(ctx context.Context, msg kafka.Message) error {
	slog.Debug("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Type == "" {
		return fmt.Errorf("event without type")
	}
	return c.handler.HandleEvent(ctx, event)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
