package kafkax

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a writer for one topic that waits for all in-sync replicas.
func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(SplitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewEventMessage carries meta in headers and the current trace context, keyed by key.
// A zero OccurredAt is stamped with the current time.
func NewEventMessage(ctx context.Context, meta EventMeta, key string, payload []byte) kafka.Message {
	if meta.OccurredAt.IsZero() {
		meta.OccurredAt = time.Now()
	}
	at := meta.OccurredAt.UTC()
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(meta.EventID)},
		{Key: HeaderEventType, Value: []byte(meta.EventType)},
		{Key: HeaderOccurredAt, Value: []byte(at.Format(time.RFC3339Nano))},
	}
	return kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: InjectTraceHeaders(ctx, headers),
		Time:    at,
	}
}
