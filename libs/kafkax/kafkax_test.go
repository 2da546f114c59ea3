package kafkax

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Topic:   "clinic.calendar.changed.v1",
		Key:     []byte("key-1"),
		Headers: []kafka.Header{{Key: "event_id", Value: []byte("evt-1")}},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "clinic.calendar.changed.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	meta = ExtractEventMeta(kafka.Message{Key: []byte("key-2"), Headers: []kafka.Header{{Key: "event_type", Value: []byte("hours_changed")}}})
	if meta.EventID != "key-2" || meta.EventType != "hours_changed" {
		t.Fatalf("unexpected fallback meta %+v", meta)
	}
}

func TestEventMeta_OccurredAt(t *testing.T) {
	at := time.Date(2026, time.October, 14, 8, 30, 0, 0, time.UTC)
	msg := NewEventMessage(context.Background(), EventMeta{EventID: "evt-2", OccurredAt: at}, "calendar", nil)
	if got := ExtractEventMeta(msg).OccurredAt; !got.Equal(at) {
		t.Fatalf("expected %s, got %s", at, got)
	}

	brokerTime := at.Add(time.Minute)
	if got := ExtractEventMeta(kafka.Message{Time: brokerTime}).OccurredAt; !got.Equal(brokerTime) {
		t.Fatalf("expected broker time fallback, got %s", got)
	}

	if NewEventMessage(context.Background(), EventMeta{EventID: "evt-3"}, "calendar", nil).Time.IsZero() {
		t.Fatalf("expected a stamped time")
	}
}

func TestReadyCheck_NoBrokers(t *testing.T) {
	if err := ReadyCheck(" , ")(context.Background()); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestNewEventMessage_CarriesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled, Remote: true})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), sc)

	msg := NewEventMessage(ctx, EventMeta{EventID: "evt-9", EventType: "clinic.calendar.block_changed"}, "calendar", []byte(`{}`))
	if HeaderValue(msg.Headers, "event_id") != "evt-9" || string(msg.Key) != "calendar" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if HeaderValue(msg.Headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header, got %+v", msg.Headers)
	}

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	if got.TraceID() != traceID {
		t.Fatalf("expected trace id to round trip, got %s", got.TraceID())
	}
}
