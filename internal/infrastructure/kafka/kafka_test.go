package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kafkamocks "github.com/honeynil/BookShareService/internal/infrastructure/kafka/mocks"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, e models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

type fakeReader struct {
	msgs chan kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) Close() error { return nil }

func TestPublishEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := kafkamocks.NewMockKafkaProducer(ctrl)
	event := models.Event{
		Type:          models.EventTransactionStatusChanged,
		TransactionID: "tx-1",
		Status:        "accepted",
	}

	producer.EXPECT().Send(gomock.Any(), models.TopicTransactions, "tx-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, value []byte) error {
			var decoded models.Event
			require.NoError(t, json.Unmarshal(value, &decoded))
			assert.Equal(t, models.EventTransactionStatusChanged, decoded.Type)
			assert.False(t, decoded.OccurredAt.IsZero())
			return nil
		})

	assert.NoError(t, PublishEvent(context.Background(), producer, models.TopicTransactions, event))
}

func TestConsumer_HandleMessage(t *testing.T) {
	handler := &recordingHandler{}
	c := &Consumer{reader: &fakeReader{}, topic: "payments", handler: handler}
	ctx := context.Background()

	t.Run("valid event", func(t *testing.T) {
		value, _ := json.Marshal(models.Event{Type: models.EventPaymentCompleted, PaymentID: "p-1"})
		assert.NoError(t, c.HandleMessage(ctx, kafka.Message{Topic: "payments", Value: value}))
		assert.Equal(t, 1, handler.count())
	})

	t.Run("malformed payload", func(t *testing.T) {
		err := c.HandleMessage(ctx, kafka.Message{Topic: "payments", Value: []byte("{")})
		assert.Error(t, err)
	})

	t.Run("missing type", func(t *testing.T) {
		err := c.HandleMessage(ctx, kafka.Message{Topic: "payments", Value: []byte(`{"payment_id":"p"}`)})
		assert.Error(t, err)
	})

	t.Run("handler error surfaces", func(t *testing.T) {
		handler.err = errors.New("boom")
		defer func() { handler.err = nil }()
		value, _ := json.Marshal(models.Event{Type: models.EventPaymentFailed})
		assert.Error(t, c.HandleMessage(ctx, kafka.Message{Value: value}))
	})
}

func TestConsumer_ConsumeStopsOnCancel(t *testing.T) {
	handler := &recordingHandler{}
	reader := &fakeReader{msgs: make(chan kafka.Message, 1)}
	c := &Consumer{reader: reader, topic: "transactions", handler: handler}

	value, _ := json.Marshal(models.Event{Type: models.EventTransactionRequested, TransactionID: "tx"})
	reader.msgs <- kafka.Message{Topic: "transactions", Value: value}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Consume(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
