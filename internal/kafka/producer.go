package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const (
	EventOrdersImported = "orders.imported"
	EventOrderCancelled = "orders.cancelled"
)

// Topics names the Kafka topic of each order event.
type Topics struct {
	Imported  string
	Cancelled string
}

// OrdersImportedEvent is published once per committed import batch.
type OrdersImportedEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	OrderIDs   []int64   `json:"order_ids"`
}

type OrderCancelledEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	OrderID    int64     `json:"order_id"`
}

// Producer publishes order events through a synchronous sarama producer.
type Producer struct {
	producer sarama.SyncProducer
	topics   Topics
	logger   *slog.Logger
}

func NewProducer(brokers []string, topics Topics, logger *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return newProducer(producer, topics, logger), nil
}

func newProducer(producer sarama.SyncProducer, topics Topics, logger *slog.Logger) *Producer {
	return &Producer{producer: producer, topics: topics, logger: logger}
}

func (p *Producer) PublishOrdersImported(ctx context.Context, orderIDs []int64) error {
	event := OrdersImportedEvent{
		EventID:    uuid.NewString(),
		Type:       EventOrdersImported,
		OccurredAt: time.Now().UTC(),
		OrderIDs:   orderIDs,
	}
	return p.publish(ctx, p.topics.Imported, event.EventID, event)
}

func (p *Producer) PublishOrderCancelled(ctx context.Context, orderID int64) error {
	event := OrderCancelledEvent{
		EventID:    uuid.NewString(),
		Type:       EventOrderCancelled,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
	}
	return p.publish(ctx, p.topics.Cancelled, strconv.FormatInt(orderID, 10), event)
}

func (p *Producer) publish(ctx context.Context, topic, key string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: msg})

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		"topic", topic,
		"key", key,
		"partition", partition,
		"offset", offset,
	)

	return nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// headerCarrier adapts message headers for trace context propagation.
type headerCarrier struct {
	msg *sarama.ProducerMessage
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if string(h.Key) == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, string(h.Key))
	}
	return keys
}
