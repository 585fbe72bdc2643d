package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/BookShareService/internal/infrastructure/kafka"
	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func bookCacheKey(id string) string {
	return fmt.Sprintf("book:%s", id)
}

func unreadCacheKey(userID string) string {
	return fmt.Sprintf("user:%s:unread", userID)
}

func paymentRequestKey(requestID string) string {
	return fmt.Sprintf("payment:request:%s", requestID)
}

// parseID rejects ids that are not UUIDs before they reach Postgres.
func parseID(field, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", pkgerrors.FieldError(field, "must be a valid UUID")
	}
	return id.String(), nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// publish sends the event and only logs on failure; the state change it
// describes is already committed.
func publish(ctx context.Context, producer kafka.KafkaProducer, topic string, event models.Event) {
	if producer == nil {
		return
	}
	if err := kafka.PublishEvent(ctx, producer, topic, event); err != nil {
		slog.Error("failed to publish event", "topic", topic, "type", event.Type, "key", event.Key(), "error", err)
		return
	}
	slog.Debug("event published", "topic", topic, "type", event.Type, "key", event.Key())
}
